package slack

import (
	"errors"
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"
)

// RetrievalErrorKind classifies retrieval failures. Any retrieval failure
// is fatal to the run: no messages were obtained.
type RetrievalErrorKind string

// Retrieval failure kinds.
const (
	AuthFailure     RetrievalErrorKind = "auth_failure"
	ChannelNotFound RetrievalErrorKind = "channel_not_found"
	NetworkError    RetrievalErrorKind = "network_error"
)

// RetrievalError wraps a channel source failure with its classification.
type RetrievalError struct {
	Kind    RetrievalErrorKind
	Message string
	Cause   error
}

func (e *RetrievalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("retrieval failed (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("retrieval failed (%s): %s", e.Kind, e.Message)
}

func (e *RetrievalError) Unwrap() error {
	return e.Cause
}

// translateError maps Slack API errors onto the retrieval taxonomy.
// The Slack client reports API-level failures as error strings carrying
// the API error code, so classification is by code substring.
func translateError(err error) *RetrievalError {
	var rateLimited *slackapi.RateLimitedError
	if errors.As(err, &rateLimited) {
		return &RetrievalError{
			Kind:    NetworkError,
			Message: fmt.Sprintf("rate limited by Slack API (retry after %s)", rateLimited.RetryAfter),
			Cause:   err,
		}
	}

	msg := err.Error()
	switch {
	case containsAny(msg, "channel_not_found", "is_archived", "not_in_channel"):
		return &RetrievalError{Kind: ChannelNotFound, Message: "channel is missing or inaccessible", Cause: err}
	case containsAny(msg, "invalid_auth", "not_authed", "account_inactive", "token_revoked", "token_expired"):
		return &RetrievalError{Kind: AuthFailure, Message: "Slack authentication failed", Cause: err}
	default:
		return &RetrievalError{Kind: NetworkError, Message: "Slack API call failed", Cause: err}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
