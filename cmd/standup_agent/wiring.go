package main

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/jonathan/standup-scraper/internal/config"
	"github.com/jonathan/standup-scraper/internal/extraction"
	"github.com/jonathan/standup-scraper/internal/llm"
	"github.com/jonathan/standup-scraper/internal/logging"
	"github.com/jonathan/standup-scraper/internal/slack"
)

// loadSettings builds validated settings plus a matching logger. Every
// command starts here so configuration errors surface before any remote
// call is attempted.
func loadSettings() (*config.Settings, *zap.Logger, error) {
	settings, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(settings.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return settings, logger, nil
}

// newScraper wires the Slack client for the configured channel.
func newScraper(settings *config.Settings, logger *zap.Logger) (*slack.Scraper, error) {
	api := slackapi.New(settings.SlackBotToken)
	return slack.New(api, slack.Options{
		ChannelID:   settings.SlackChannelID,
		MaxMessages: settings.MaxMessages,
	}, logger)
}

// newExtractor wires the Gemini client and extraction layer. The
// returned closer releases the underlying client connection.
func newExtractor(ctx context.Context, settings *config.Settings, logger *zap.Logger) (*extraction.Extractor, func(), error) {
	llmConfig := llm.DefaultConfig().WithModel(llm.TierLite, settings.GeminiModel)
	client, err := llm.NewGeminiClient(ctx, llmConfig, settings.GeminiAPIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	extractor := extraction.New(client, extraction.Config{}, logger)
	return extractor, func() { _ = client.Close() }, nil
}
