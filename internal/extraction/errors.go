package extraction

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// Reason classifies why an extraction failed.
type Reason string

// Extraction failure reasons. RateLimited is retryable at the pipeline
// level; the other two are recorded immediately.
const (
	ReasonRateLimited        Reason = "rate_limited"
	ReasonServiceError       Reason = "service_error"
	ReasonUnparsableResponse Reason = "unparsable_response"
)

// Error is the uniform failure signal for one message's extraction.
type Error struct {
	Reason  Reason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed (%s): %s: %v", e.Reason, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed (%s): %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ReasonOf returns the failure reason if err is an extraction error.
func ReasonOf(err error) (Reason, bool) {
	var exErr *Error
	if errors.As(err, &exErr) {
		return exErr.Reason, true
	}
	return "", false
}

// classifyCompletionError maps a completion transport error to the
// extraction error taxonomy. Rate limiting is distinguished so the
// pipeline can apply its retry policy; everything else is a service error.
func classifyCompletionError(err error) *Error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return &Error{Reason: ReasonRateLimited, Message: "completion service rate limited", Cause: err}
	}
	if strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
		return &Error{Reason: ReasonRateLimited, Message: "completion service quota exhausted", Cause: err}
	}
	return &Error{Reason: ReasonServiceError, Message: "completion request failed", Cause: err}
}
