// Package types defines the core data model shared across the standup
// scraper pipeline: retrieved messages, extraction results, and the
// aggregate run report.
package types

import (
	"time"

	"github.com/google/uuid"
)

// RawMessage is a single message retrieved from the channel source.
// It is immutable once produced by the retrieval adapter.
type RawMessage struct {
	AuthorID  string    `json:"author_id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	ChannelID string    `json:"channel_id"`
	ThreadTS  string    `json:"thread_ts,omitempty"`
}

// ResolvedUser maps a channel author id to a human-readable display name.
// The retrieval adapter maintains at most one entry per id for the
// lifetime of a run.
type ResolvedUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ExtractionResult holds the classified content of one message.
// Progress and NextSteps are nil when the message contained no such
// statement; nil is a valid, common outcome and is distinct from a
// parse failure of the whole response.
type ExtractionResult struct {
	Progress    *string   `json:"progress"`
	NextSteps   *string   `json:"next_steps"`
	Confidence  float64   `json:"confidence"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ErrorKind identifies why a message could not be classified.
type ErrorKind string

// Error kinds recorded in failed ProcessedRecords.
const (
	ErrorKindNone               ErrorKind = ""
	ErrorKindServiceError       ErrorKind = "service_error"
	ErrorKindUnparsableResponse ErrorKind = "unparsable_response"
	ErrorKindRateLimitExhausted ErrorKind = "rate_limit_exhausted"
)

// ProcessedRecord is the per-message outcome of a run. It is a tagged
// variant: exactly one of Extraction or Error is set.
type ProcessedRecord struct {
	Raw        RawMessage        `json:"message"`
	User       ResolvedUser      `json:"user"`
	Extraction *ExtractionResult `json:"extraction,omitempty"`
	Error      ErrorKind         `json:"error,omitempty"`
}

// Succeeded reports whether the record carries an extraction result.
func (r *ProcessedRecord) Succeeded() bool {
	return r.Error == ErrorKindNone && r.Extraction != nil
}

// RunReport aggregates the outcomes of one pipeline run.
// Invariant: Total == Succeeded + Failed == len(Records), and Records
// preserve the retrieval order of the underlying messages.
type RunReport struct {
	RunID       uuid.UUID         `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Total       int               `json:"total"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Records     []ProcessedRecord `json:"records"`
}

// Consistent verifies the counter invariant against the record list.
func (r *RunReport) Consistent() bool {
	if r.Total != len(r.Records) || r.Total != r.Succeeded+r.Failed {
		return false
	}
	succeeded := 0
	for i := range r.Records {
		if r.Records[i].Succeeded() {
			succeeded++
		}
	}
	return succeeded == r.Succeeded
}
