package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/standup-scraper/internal/extraction"
	"github.com/jonathan/standup-scraper/internal/slack"
	"github.com/jonathan/standup-scraper/internal/types"
)

type fakeFetcher struct {
	messages []types.RawMessage
	err      error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ slack.Filter) ([]types.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.messages, nil
}

func (f *fakeFetcher) ResolveUser(_ context.Context, id string) types.ResolvedUser {
	return types.ResolvedUser{ID: id, DisplayName: "name-" + id}
}

// fakeExtractor scripts per-message behavior via fn; attempt counts are
// tracked per message text.
type fakeExtractor struct {
	mu       sync.Mutex
	attempts map[string]int
	fn       func(ctx context.Context, msg types.RawMessage, attempt int) (*types.ExtractionResult, error)
}

func (f *fakeExtractor) Extract(ctx context.Context, msg types.RawMessage) (*types.ExtractionResult, error) {
	f.mu.Lock()
	if f.attempts == nil {
		f.attempts = make(map[string]int)
	}
	f.attempts[msg.Text]++
	attempt := f.attempts[msg.Text]
	f.mu.Unlock()
	return f.fn(ctx, msg, attempt)
}

func (f *fakeExtractor) attemptCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[text]
}

// fakeSleeper records requested delays without sleeping.
type fakeSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.delays = append(f.delays, d)
	f.mu.Unlock()
	return ctx.Err()
}

func succeed(_ context.Context, _ types.RawMessage, _ int) (*types.ExtractionResult, error) {
	p := "did things"
	return &types.ExtractionResult{Progress: &p, Confidence: 0.6}, nil
}

func makeMessages(n int) []types.RawMessage {
	messages := make([]types.RawMessage, n)
	for i := range messages {
		messages[i] = types.RawMessage{
			AuthorID:  fmt.Sprintf("U%d", i%3),
			Timestamp: time.Date(2025, 6, 2, 10, 0, n-i, 0, time.UTC),
			Text:      fmt.Sprintf("m%d", i),
			ChannelID: "C1",
		}
	}
	return messages
}

func TestRun_AllSucceedSequential(t *testing.T) {
	messages := makeMessages(4)
	runner := NewRunner(&fakeFetcher{messages: messages}, &fakeExtractor{fn: succeed}, Policy{}, nil)

	report, err := runner.Run(context.Background(), slack.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.True(t, report.Consistent())
	assert.NotEqual(t, report.RunID.String(), "00000000-0000-0000-0000-000000000000")
	for i, record := range report.Records {
		assert.Equal(t, messages[i].Text, record.Raw.Text, "record %d out of order", i)
		assert.Equal(t, "name-"+messages[i].AuthorID, record.User.DisplayName)
	}
}

func TestRun_RecordsPreserveRetrievalOrderUnderConcurrency(t *testing.T) {
	messages := makeMessages(20)
	rng := rand.New(rand.NewSource(42))
	var mu sync.Mutex

	extractor := &fakeExtractor{fn: func(ctx context.Context, msg types.RawMessage, _ int) (*types.ExtractionResult, error) {
		mu.Lock()
		latency := time.Duration(rng.Intn(5)) * time.Millisecond
		mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(latency):
		}
		return succeed(ctx, msg, 0)
	}}

	runner := NewRunner(&fakeFetcher{messages: messages}, extractor, Policy{Concurrency: 5}, nil)
	report, err := runner.Run(context.Background(), slack.Filter{})
	require.NoError(t, err)

	require.Equal(t, 20, report.Total)
	for i, record := range report.Records {
		assert.Equal(t, fmt.Sprintf("m%d", i), record.Raw.Text)
	}
}

func TestRun_PartialFailureNeverAbortsRun(t *testing.T) {
	messages := makeMessages(3)
	extractor := &fakeExtractor{fn: func(ctx context.Context, msg types.RawMessage, attempt int) (*types.ExtractionResult, error) {
		if msg.Text == "m1" {
			return nil, &extraction.Error{Reason: extraction.ReasonUnparsableResponse, Message: "gibberish"}
		}
		return succeed(ctx, msg, attempt)
	}}

	runner := NewRunner(&fakeFetcher{messages: messages}, extractor, Policy{}, nil)
	report, err := runner.Run(context.Background(), slack.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, report.Consistent())
	assert.Equal(t, types.ErrorKindUnparsableResponse, report.Records[1].Error)
	assert.Nil(t, report.Records[1].Extraction)
}

func TestRun_PersistentRateLimitExhaustsExactlyMaxRetries(t *testing.T) {
	messages := makeMessages(3)
	extractor := &fakeExtractor{fn: func(ctx context.Context, msg types.RawMessage, attempt int) (*types.ExtractionResult, error) {
		if msg.Text == "m1" {
			return nil, &extraction.Error{Reason: extraction.ReasonRateLimited, Message: "slow down"}
		}
		return succeed(ctx, msg, attempt)
	}}
	sleeper := &fakeSleeper{}

	runner := NewRunner(&fakeFetcher{messages: messages}, extractor, Policy{MaxRetries: 3, BaseDelay: 100 * time.Millisecond}, nil)
	runner.sleeper = sleeper

	report, err := runner.Run(context.Background(), slack.Filter{})
	require.NoError(t, err)

	// Exactly MaxRetries attempts for the limited message, then failure.
	assert.Equal(t, 3, extractor.attemptCount("m1"))
	assert.Equal(t, types.ErrorKindRateLimitExhausted, report.Records[1].Error)

	// Exponential backoff between attempts.
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.delays)

	// Sibling messages in the same run are unaffected.
	assert.Equal(t, 2, report.Succeeded)
	assert.True(t, report.Records[0].Succeeded())
	assert.True(t, report.Records[2].Succeeded())
}

func TestRun_RateLimitThenSuccessRetries(t *testing.T) {
	messages := makeMessages(1)
	extractor := &fakeExtractor{fn: func(ctx context.Context, msg types.RawMessage, attempt int) (*types.ExtractionResult, error) {
		if attempt < 3 {
			return nil, &extraction.Error{Reason: extraction.ReasonRateLimited, Message: "slow down"}
		}
		return succeed(ctx, msg, attempt)
	}}

	runner := NewRunner(&fakeFetcher{messages: messages}, extractor, Policy{MaxRetries: 3}, nil)
	runner.sleeper = &fakeSleeper{}

	report, err := runner.Run(context.Background(), slack.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 3, extractor.attemptCount("m0"))
}

func TestRun_NonRetryableErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind types.ErrorKind
	}{
		{
			name: "service error",
			err:  &extraction.Error{Reason: extraction.ReasonServiceError, Message: "boom"},
			kind: types.ErrorKindServiceError,
		},
		{
			name: "unparsable response",
			err:  &extraction.Error{Reason: extraction.ReasonUnparsableResponse, Message: "??"},
			kind: types.ErrorKindUnparsableResponse,
		},
		{
			name: "untyped error",
			err:  errors.New("unexpected"),
			kind: types.ErrorKindServiceError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := &fakeExtractor{fn: func(context.Context, types.RawMessage, int) (*types.ExtractionResult, error) {
				return nil, tt.err
			}}
			runner := NewRunner(&fakeFetcher{messages: makeMessages(1)}, extractor, Policy{}, nil)

			report, err := runner.Run(context.Background(), slack.Filter{})
			require.NoError(t, err)

			assert.Equal(t, 1, extractor.attemptCount("m0"), "no retries expected")
			assert.Equal(t, tt.kind, report.Records[0].Error)
		})
	}
}

func TestRun_RetrievalErrorIsFatal(t *testing.T) {
	retrieval := &slack.RetrievalError{Kind: slack.ChannelNotFound, Message: "gone"}
	runner := NewRunner(&fakeFetcher{err: retrieval}, &fakeExtractor{fn: succeed}, Policy{}, nil)

	report, err := runner.Run(context.Background(), slack.Filter{})
	assert.Nil(t, report)

	var rerr *slack.RetrievalError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, slack.ChannelNotFound, rerr.Kind)
}

func TestRun_CancellationProducesNoReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	messages := makeMessages(5)

	var completed int
	var mu sync.Mutex
	extractor := &fakeExtractor{fn: func(ctx context.Context, msg types.RawMessage, attempt int) (*types.ExtractionResult, error) {
		mu.Lock()
		done := completed
		completed++
		mu.Unlock()
		if done >= 2 {
			// Simulate a user interrupt after two messages complete.
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return succeed(ctx, msg, attempt)
	}}

	runner := NewRunner(&fakeFetcher{messages: messages}, extractor, Policy{}, nil)
	report, err := runner.Run(ctx, slack.Filter{})

	assert.Nil(t, report, "a cancelled run must not produce a partial report")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_CancelDuringRateLimitProducesNoReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	extractor := &fakeExtractor{fn: func(context.Context, types.RawMessage, int) (*types.ExtractionResult, error) {
		cancel()
		return nil, &extraction.Error{Reason: extraction.ReasonRateLimited, Message: "slow down"}
	}}

	runner := NewRunner(&fakeFetcher{messages: makeMessages(1)}, extractor, Policy{MaxRetries: 3}, nil)

	report, err := runner.Run(ctx, slack.Filter{})
	assert.Nil(t, report)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTimerSleeper_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := timerSleeper{}.Sleep(ctx, time.Minute)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
