// Package extraction implements the message classification client: it
// builds the prompt for one message, invokes the completion service,
// parses the response into a validated result, and assigns a confidence
// score from parse quality.
package extraction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/standup-scraper/internal/llm"
	"github.com/jonathan/standup-scraper/internal/prompts"
	"github.com/jonathan/standup-scraper/internal/types"
)

// Config holds the extraction tuning knobs. The confidence bands are a
// documented heuristic, not a model output: parse quality is all the
// client has to go on, so the score reflects how cleanly the completion
// matched the requested structure.
type Config struct {
	// Tier selects the completion model tier.
	Tier llm.ModelTier

	// HighConfidence is assigned when both sections are present and
	// non-empty, MediumConfidence when exactly one is, LowConfidence when
	// the structure was recognized but both sections were empty.
	HighConfidence   float64
	MediumConfidence float64
	LowConfidence    float64
}

// DefaultConfig returns the default extraction configuration.
func DefaultConfig() Config {
	return Config{
		Tier:             llm.TierLite,
		HighConfidence:   0.90,
		MediumConfidence: 0.60,
		LowConfidence:    0.30,
	}
}

// Extractor classifies one message at a time. It never retries; rate
// limiting surfaces as a typed error so the retry policy stays at the
// pipeline boundary where it is observable.
type Extractor struct {
	client   llm.Client
	cfg      Config
	logger   *zap.Logger
	template string
	now      func() time.Time
}

// New creates an Extractor. Zero-valued config fields fall back to
// DefaultConfig values.
func New(client llm.Client, cfg Config, logger *zap.Logger) *Extractor {
	defaults := DefaultConfig()
	if cfg.Tier == "" {
		cfg.Tier = defaults.Tier
	}
	if cfg.HighConfidence == 0 {
		cfg.HighConfidence = defaults.HighConfidence
	}
	if cfg.MediumConfidence == 0 {
		cfg.MediumConfidence = defaults.MediumConfidence
	}
	if cfg.LowConfidence == 0 {
		cfg.LowConfidence = defaults.LowConfidence
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		client:   client,
		cfg:      cfg,
		logger:   logger,
		template: prompts.MustGet("extraction.json", "extract-status"),
		now:      time.Now,
	}
}

// BuildPrompt renders the deterministic extraction prompt for a message.
func (e *Extractor) BuildPrompt(messageText string) string {
	return prompts.Format(e.template, map[string]string{
		"MessageText": messageText,
	})
}

// Extract classifies a single message. Failures are always *Error; an
// absent section in an otherwise well-formed completion is a valid
// result, not a failure.
func (e *Extractor) Extract(ctx context.Context, msg types.RawMessage) (*types.ExtractionResult, error) {
	completion, err := e.client.Complete(ctx, e.BuildPrompt(msg.Text), e.cfg.Tier)
	if err != nil {
		return nil, classifyCompletionError(err)
	}

	sections, err := ParseCompletion(completion)
	if err != nil {
		e.logger.Debug("unparsable completion",
			zap.String("author_id", msg.AuthorID),
			zap.Int("completion_len", len(completion)))
		return nil, &Error{
			Reason:  ReasonUnparsableResponse,
			Message: "completion did not match the requested structure",
			Cause:   err,
		}
	}

	return &types.ExtractionResult{
		Progress:    sections.Progress,
		NextSteps:   sections.NextSteps,
		Confidence:  e.score(sections),
		ProcessedAt: e.now().UTC(),
	}, nil
}

func (e *Extractor) score(s Sections) float64 {
	switch {
	case s.Progress != nil && s.NextSteps != nil:
		return e.cfg.HighConfidence
	case s.Progress != nil || s.NextSteps != nil:
		return e.cfg.MediumConfidence
	default:
		return e.cfg.LowConfidence
	}
}
