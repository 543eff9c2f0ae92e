// Package slack implements the retrieval adapter over the Slack Web API:
// paged channel history, client-side author filtering, and a per-run
// user resolution cache.
package slack

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/jonathan/standup-scraper/internal/types"
)

// DefaultPageSize is the history page size requested per API call.
const DefaultPageSize = 200

// API is the slice of the Slack client the scraper depends on.
// *slackapi.Client satisfies it; tests substitute a fake.
type API interface {
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
	GetConversationHistoryContext(ctx context.Context, params *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error)
	GetUserInfoContext(ctx context.Context, user string) (*slackapi.User, error)
}

// Options configures a Scraper.
type Options struct {
	// ChannelID is the channel whose history is scraped. Required.
	ChannelID string
	// PageSize overrides DefaultPageSize when positive.
	PageSize int
	// MaxMessages caps retrieval when no per-call limit is given.
	// Zero means retrieve until source exhaustion.
	MaxMessages int
}

// Filter narrows one retrieval call.
type Filter struct {
	// AuthorID keeps only messages by this author. Filtering is
	// client-side; the history endpoint has no server-side author filter.
	AuthorID string
	// Limit stops retrieval once this many matching messages have been
	// collected. Zero or negative falls back to Options.MaxMessages.
	Limit int
}

// Identity describes the authenticated Slack identity.
type Identity struct {
	UserID string
	User   string
	Team   string
}

// UserActivity pairs a resolved user with their message count.
type UserActivity struct {
	User         types.ResolvedUser `json:"user"`
	MessageCount int                `json:"message_count"`
}

// Scraper pages through one channel's history and resolves author ids.
// The user cache lives for the lifetime of the scraper, i.e. one run.
type Scraper struct {
	api       API
	channelID string
	pageSize  int
	maxMsgs   int
	logger    *zap.Logger

	mu    sync.Mutex
	users map[string]types.ResolvedUser
}

// New creates a Scraper for one channel.
func New(api API, opts Options, logger *zap.Logger) (*Scraper, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("channel id is required")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scraper{
		api:       api,
		channelID: opts.ChannelID,
		pageSize:  pageSize,
		maxMsgs:   opts.MaxMessages,
		logger:    logger,
		users:     make(map[string]types.ResolvedUser),
	}, nil
}

// Fetch retrieves channel messages newest-first, applying the author
// filter and limit. The limit counts filtered messages, so retrieval
// stops mid-page once enough matches are collected. Bot messages and
// subtyped system messages are skipped.
func (s *Scraper) Fetch(ctx context.Context, filter Filter) ([]types.RawMessage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = s.maxMsgs
	}

	var out []types.RawMessage
	cursor := ""
	for {
		resp, err := s.api.GetConversationHistoryContext(ctx, &slackapi.GetConversationHistoryParameters{
			ChannelID: s.channelID,
			Cursor:    cursor,
			Limit:     s.pageSize,
		})
		if err != nil {
			return nil, translateError(err)
		}

		for _, msg := range resp.Messages {
			if msg.BotID != "" || msg.SubType != "" || msg.User == "" {
				continue
			}
			if filter.AuthorID != "" && msg.User != filter.AuthorID {
				continue
			}
			out = append(out, types.RawMessage{
				AuthorID:  msg.User,
				Timestamp: parseTimestamp(msg.Timestamp),
				Text:      msg.Text,
				ChannelID: s.channelID,
				ThreadTS:  msg.ThreadTimestamp,
			})
			if limit > 0 && len(out) >= limit {
				s.logger.Debug("retrieval limit reached", zap.Int("count", len(out)))
				return out, nil
			}
		}

		next := resp.ResponseMetaData.NextCursor
		if !resp.HasMore || next == "" {
			break
		}
		// The page cursor must advance strictly, or paging would loop and
		// duplicate messages.
		if next == cursor {
			return nil, &RetrievalError{Kind: NetworkError, Message: "history cursor did not advance"}
		}
		cursor = next
	}

	s.logger.Info("retrieved channel messages",
		zap.String("channel_id", s.channelID),
		zap.Int("count", len(out)))
	return out, nil
}

// ResolveUser maps an author id to a display name, at most one lookup
// per id per run. Lookup failures degrade to a placeholder name; they
// never abort the run.
func (s *Scraper) ResolveUser(ctx context.Context, id string) types.ResolvedUser {
	s.mu.Lock()
	if cached, ok := s.users[id]; ok {
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	// No lock held across the remote call. Concurrent first sightings of
	// the same id may both look it up; the first insert wins below.
	name := placeholderName(id)
	info, err := s.api.GetUserInfoContext(ctx, id)
	if err != nil {
		s.logger.Warn("user lookup failed, using placeholder",
			zap.String("user_id", id), zap.Error(err))
	} else {
		name = displayName(info, id)
	}
	resolved := types.ResolvedUser{ID: id, DisplayName: name}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[id]; ok {
		return existing
	}
	s.users[id] = resolved
	return resolved
}

// TestAuth verifies the Slack credentials and returns the bot identity.
func (s *Scraper) TestAuth(ctx context.Context) (*Identity, error) {
	resp, err := s.api.AuthTestContext(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return &Identity{UserID: resp.UserID, User: resp.User, Team: resp.Team}, nil
}

// ListUserActivity scans the channel and returns distinct posters with
// their message counts, most active first.
func (s *Scraper) ListUserActivity(ctx context.Context, limit int) ([]UserActivity, error) {
	messages, err := s.Fetch(ctx, Filter{Limit: limit})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, msg := range messages {
		counts[msg.AuthorID]++
	}

	activity := make([]UserActivity, 0, len(counts))
	for id, count := range counts {
		activity = append(activity, UserActivity{
			User:         s.ResolveUser(ctx, id),
			MessageCount: count,
		})
	}
	sort.Slice(activity, func(i, j int) bool {
		if activity[i].MessageCount != activity[j].MessageCount {
			return activity[i].MessageCount > activity[j].MessageCount
		}
		return activity[i].User.DisplayName < activity[j].User.DisplayName
	})
	return activity, nil
}

// parseTimestamp converts a Slack "seconds.microseconds" ts string to a
// UTC time. Unparsable input yields the zero time rather than an error;
// the ts format is stable and this never gates a run.
func parseTimestamp(ts string) time.Time {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var nsec int64
	if fracPart != "" {
		padded := (fracPart + "000000000")[:9]
		if n, err := strconv.ParseInt(padded, 10, 64); err == nil {
			nsec = n
		}
	}
	return time.Unix(sec, nsec).UTC()
}

func displayName(user *slackapi.User, id string) string {
	switch {
	case user.Profile.DisplayName != "":
		return user.Profile.DisplayName
	case user.RealName != "":
		return user.RealName
	case user.Name != "":
		return user.Name
	default:
		return placeholderName(id)
	}
}

func placeholderName(id string) string {
	return "user_" + id
}
