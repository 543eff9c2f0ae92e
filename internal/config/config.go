// Package config provides environment-derived configuration for the CLI.
// Settings are loaded once at startup and passed into components as an
// immutable struct; core logic never reads ambient environment state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultModel        = "gemini-2.5-flash-lite"
	DefaultMaxMessages  = 100
	DefaultOutputFormat = "json"
	DefaultOutputDir    = "output"
	DefaultLogLevel     = "info"
	DefaultConcurrency  = 1
	DefaultMaxRetries   = 3
	DefaultBaseDelay    = 500 * time.Millisecond
)

// Settings holds everything the pipeline needs: credentials for the two
// remote services, retrieval bounds, and output/behavior knobs.
type Settings struct {
	// Slack
	SlackBotToken  string `validate:"required"`
	SlackChannelID string `validate:"required"`

	// Gemini
	GeminiAPIKey string `validate:"required"`
	GeminiModel  string `validate:"required"`

	// Retrieval
	MaxMessages int `validate:"min=0"`

	// Extraction/pipeline behavior
	Concurrency int           `validate:"min=1"`
	MaxRetries  int           `validate:"min=1"`
	BaseDelay   time.Duration `validate:"min=0"`

	// Output
	OutputFormat string `validate:"oneof=json csv"`
	OutputDir    string `validate:"required"`

	// Logging
	LogLevel string `validate:"oneof=debug info warn error"`
}

// FromEnv builds Settings from environment variables, applying defaults
// and validating the result. Callers are expected to have loaded any
// .env file beforehand (the CLI does this via godotenv).
func FromEnv() (*Settings, error) {
	s := &Settings{
		SlackBotToken:  os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannelID: os.Getenv("SLACK_CHANNEL_ID"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    envOrDefault("GEMINI_MODEL", DefaultModel),
		OutputFormat:   strings.ToLower(envOrDefault("OUTPUT_FORMAT", DefaultOutputFormat)),
		OutputDir:      envOrDefault("OUTPUT_DIR", DefaultOutputDir),
		LogLevel:       strings.ToLower(envOrDefault("LOG_LEVEL", DefaultLogLevel)),
		BaseDelay:      DefaultBaseDelay,
	}

	var err error
	if s.MaxMessages, err = envInt("MAX_MESSAGES", DefaultMaxMessages); err != nil {
		return nil, err
	}
	if s.Concurrency, err = envInt("EXTRACT_CONCURRENCY", DefaultConcurrency); err != nil {
		return nil, err
	}
	if s.MaxRetries, err = envInt("MAX_RETRIES", DefaultMaxRetries); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings against their struct constraints and
// returns a readable error naming the offending fields.
func (s *Settings) Validate() error {
	validate := validator.New()
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation: %w", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(fields, ", "))
}

// Redacted returns the settings as display pairs with secrets masked,
// in a stable order suitable for the show-config command.
func (s *Settings) Redacted() [][2]string {
	return [][2]string{
		{"SLACK_BOT_TOKEN", maskSecret(s.SlackBotToken)},
		{"SLACK_CHANNEL_ID", s.SlackChannelID},
		{"GEMINI_API_KEY", maskSecret(s.GeminiAPIKey)},
		{"GEMINI_MODEL", s.GeminiModel},
		{"MAX_MESSAGES", strconv.Itoa(s.MaxMessages)},
		{"EXTRACT_CONCURRENCY", strconv.Itoa(s.Concurrency)},
		{"MAX_RETRIES", strconv.Itoa(s.MaxRetries)},
		{"OUTPUT_FORMAT", s.OutputFormat},
		{"OUTPUT_DIR", s.OutputDir},
		{"LOG_LEVEL", s.LogLevel},
	}
}

// maskSecret keeps a short prefix for recognizability and hides the rest.
func maskSecret(v string) string {
	if v == "" {
		return "(unset)"
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "..." + strings.Repeat("*", 4)
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt parses an integer environment variable, tolerating inline
// comments like "100  # cap for testing" that show up in hand-edited
// .env files.
func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	if idx := strings.Index(raw, "#"); idx >= 0 {
		raw = raw[:idx]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return n, nil
}
