package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/standup-scraper/internal/types"
)

var testConnectivityCmd = &cobra.Command{
	Use:   "test-connectivity",
	Short: "Verify Slack credentials and run a sample extraction",
	Long:  "Check that the Slack token authenticates against the workspace, then send a canned standup message through the Gemini extraction path end to end.",
	RunE:  runTestConnectivity,
}

// sampleMessage exercises both sections of the extraction prompt.
const sampleMessage = "Yesterday I finished the auth refactor and got the integration tests green. Next I'll start on the migration tooling."

func init() {
	rootCmd.AddCommand(testConnectivityCmd)
}

func runTestConnectivity(_ *cobra.Command, _ []string) error {
	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	scraper, err := newScraper(settings, logger)
	if err != nil {
		return err
	}
	identity, err := scraper.TestAuth(ctx)
	if err != nil {
		return fmt.Errorf("Slack connectivity check failed: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Slack: authenticated as %s (team %s, user id %s)\n",
		identity.User, identity.Team, identity.UserID)

	extractor, closeClient, err := newExtractor(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeClient()

	result, err := extractor.Extract(ctx, types.RawMessage{
		AuthorID:  "connectivity-test",
		Timestamp: time.Now().UTC(),
		Text:      sampleMessage,
	})
	if err != nil {
		return fmt.Errorf("Gemini connectivity check failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Gemini: extraction succeeded (model %s, confidence %.2f)\n",
		settings.GeminiModel, result.Confidence)
	if result.Progress != nil {
		fmt.Fprintf(os.Stdout, "  Progress:   %s\n", *result.Progress)
	}
	if result.NextSteps != nil {
		fmt.Fprintf(os.Stdout, "  Next steps: %s\n", *result.NextSteps)
	}
	fmt.Fprintln(os.Stdout, "\nAll connectivity checks passed.")
	return nil
}
