// Package pipeline drives the end-to-end run: retrieval, per-message
// extraction with a bounded worker pool and rate-limit retries, and
// order-preserving aggregation into a RunReport.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/standup-scraper/internal/extraction"
	"github.com/jonathan/standup-scraper/internal/slack"
	"github.com/jonathan/standup-scraper/internal/types"
)

// Fetcher is the retrieval adapter boundary the pipeline depends on.
type Fetcher interface {
	Fetch(ctx context.Context, filter slack.Filter) ([]types.RawMessage, error)
	ResolveUser(ctx context.Context, id string) types.ResolvedUser
}

// Extractor is the classification boundary the pipeline depends on.
type Extractor interface {
	Extract(ctx context.Context, msg types.RawMessage) (*types.ExtractionResult, error)
}

// Policy configures retry and scheduling behavior for one run.
type Policy struct {
	// Concurrency is the extraction worker count. 1 means sequential.
	Concurrency int
	// MaxRetries is the total number of attempts for a rate-limited
	// message before it is recorded as RateLimitExhausted.
	MaxRetries int
	// BaseDelay is the first backoff delay; it doubles per retry.
	BaseDelay time.Duration
}

// DefaultPolicy returns the default run policy: sequential processing,
// three attempts, 500ms initial backoff.
func DefaultPolicy() Policy {
	return Policy{
		Concurrency: 1,
		MaxRetries:  3,
		BaseDelay:   500 * time.Millisecond,
	}
}

func (p Policy) normalized() Policy {
	defaults := DefaultPolicy()
	if p.Concurrency < 1 {
		p.Concurrency = defaults.Concurrency
	}
	if p.MaxRetries < 1 {
		p.MaxRetries = defaults.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaults.BaseDelay
	}
	return p
}

// Runner orchestrates runs.
type Runner struct {
	fetcher   Fetcher
	extractor Extractor
	policy    Policy
	sleeper   Sleeper
	logger    *zap.Logger
	now       func() time.Time
}

// NewRunner creates a Runner with the given policy.
func NewRunner(fetcher Fetcher, extractor Extractor, policy Policy, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fetcher:   fetcher,
		extractor: extractor,
		policy:    policy.normalized(),
		sleeper:   timerSleeper{},
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one end-to-end run. A retrieval failure is fatal and
// propagates with no report. Per-message extraction failures are recorded
// in the report; they never abort the run. Cancellation discards the
// partial state and returns the context error — a cancelled run produces
// no report.
func (r *Runner) Run(ctx context.Context, filter slack.Filter) (*types.RunReport, error) {
	messages, err := r.fetcher.Fetch(ctx, filter)
	if err != nil {
		return nil, err
	}
	r.logger.Info("starting extraction",
		zap.Int("messages", len(messages)),
		zap.Int("concurrency", r.policy.Concurrency))

	// Records are written into their original position so the report
	// preserves retrieval order regardless of worker scheduling.
	records := make([]types.ProcessedRecord, len(messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.policy.Concurrency)
	for i, msg := range messages {
		i, msg := i, msg
		g.Go(func() error {
			record, err := r.processOne(gctx, msg)
			if err != nil {
				return err
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &types.RunReport{
		RunID:       uuid.New(),
		GeneratedAt: r.now().UTC(),
		Total:       len(records),
		Records:     records,
	}
	for i := range records {
		if records[i].Succeeded() {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	r.logger.Info("run complete",
		zap.String("run_id", report.RunID.String()),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))
	return report, nil
}

// processOne runs the per-message retry state machine:
// Pending -> Attempting -> Success | RateLimitedRetry(n) -> Attempting
// | PermanentFailure. Only a cancelled context returns an error; every
// extraction outcome becomes a record.
func (r *Runner) processOne(ctx context.Context, msg types.RawMessage) (types.ProcessedRecord, error) {
	record := types.ProcessedRecord{
		Raw:  msg,
		User: r.fetcher.ResolveUser(ctx, msg.AuthorID),
	}

	for attempt := 1; ; attempt++ {
		result, err := r.extractor.Extract(ctx, msg)
		if err == nil {
			record.Extraction = result
			return record, nil
		}
		if ctx.Err() != nil {
			return types.ProcessedRecord{}, ctx.Err()
		}

		var exErr *extraction.Error
		if !errors.As(err, &exErr) {
			r.logger.Warn("extraction failed", zap.String("author_id", msg.AuthorID), zap.Error(err))
			record.Error = types.ErrorKindServiceError
			return record, nil
		}

		switch exErr.Reason {
		case extraction.ReasonRateLimited:
			if attempt >= r.policy.MaxRetries {
				r.logger.Warn("rate limit retries exhausted",
					zap.String("author_id", msg.AuthorID),
					zap.Int("attempts", attempt))
				record.Error = types.ErrorKindRateLimitExhausted
				return record, nil
			}
			// Exponential backoff, local to this message.
			delay := r.policy.BaseDelay << (attempt - 1)
			r.logger.Debug("rate limited, backing off",
				zap.String("author_id", msg.AuthorID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			if err := r.sleeper.Sleep(ctx, delay); err != nil {
				return types.ProcessedRecord{}, err
			}
		case extraction.ReasonUnparsableResponse:
			record.Error = types.ErrorKindUnparsableResponse
			return record, nil
		default:
			r.logger.Warn("extraction failed", zap.String("author_id", msg.AuthorID), zap.Error(exErr))
			record.Error = types.ErrorKindServiceError
			return record, nil
		}
	}
}
