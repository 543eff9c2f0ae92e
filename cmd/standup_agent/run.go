package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/standup-scraper/internal/output"
	"github.com/jonathan/standup-scraper/internal/pipeline"
	"github.com/jonathan/standup-scraper/internal/schemas"
	"github.com/jonathan/standup-scraper/internal/slack"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape the channel and extract progress/next steps from each message",
	Long:  "Run the full pipeline: fetch channel history, extract progress and next steps from each message via Gemini, and save a run report.",
	RunE:  runRun,
}

var (
	runUserID      string
	runLimit       int
	runFormat      string
	runConcurrency int
	runOutputDir   string
	runShow        bool
)

func init() {
	runCmd.Flags().StringVarP(&runUserID, "user", "u", "", "Only process messages from this Slack user ID")
	runCmd.Flags().IntVarP(&runLimit, "limit", "l", 0, "Maximum number of messages to process (0 uses MAX_MESSAGES)")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "", "Report format: json or csv (overrides OUTPUT_FORMAT)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Extraction worker count (overrides EXTRACT_CONCURRENCY)")
	runCmd.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "Directory for report files (overrides OUTPUT_DIR)")
	runCmd.Flags().BoolVar(&runShow, "show", true, "Print per-message results after the summary")

	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, _ []string) error {
	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if runConcurrency > 0 {
		settings.Concurrency = runConcurrency
	}
	if runOutputDir != "" {
		settings.OutputDir = runOutputDir
	}
	if runFormat != "" {
		settings.OutputFormat = runFormat
	}
	format, err := output.ParseFormat(settings.OutputFormat)
	if err != nil {
		return err
	}

	// Ctrl-C abandons the run: a cancelled run produces no report.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scraper, err := newScraper(settings, logger)
	if err != nil {
		return err
	}
	extractor, closeClient, err := newExtractor(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeClient()

	runner := pipeline.NewRunner(scraper, extractor, pipeline.Policy{
		Concurrency: settings.Concurrency,
		MaxRetries:  settings.MaxRetries,
		BaseDelay:   settings.BaseDelay,
	}, logger)

	report, err := runner.Run(ctx, slack.Filter{AuthorID: runUserID, Limit: runLimit})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	manager, err := output.NewManager(settings.OutputDir, logger)
	if err != nil {
		return err
	}
	path, err := manager.Save(report, format)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	if format == output.FormatJSON {
		if err := validateReportFile(path); err != nil {
			return err
		}
	}

	printer := output.NewPrinter(os.Stdout)
	printer.PrintSummary(report)
	if runShow {
		printer.PrintResults(report, 0)
	}
	fmt.Fprintf(os.Stdout, "\nResults saved to: %s\n", path)

	return nil
}

// validateReportFile checks a saved JSON report against the run report
// schema. A schema that cannot be loaded is a warning; a report that
// fails validation is an error.
func validateReportFile(path string) error {
	schemaPath := schemas.ResolveSchemaPath(schemas.RunReportSchema)
	if schemaPath == "" {
		return nil
	}
	err := schemas.ValidateFile(schemaPath, path)
	if err == nil {
		return nil
	}

	var validationErr *schemas.ValidationError
	if errors.As(err, &validationErr) {
		return fmt.Errorf("saved report does not validate against schema: %w", err)
	}
	_, _ = fmt.Fprintf(os.Stderr, "Warning: Could not validate report against schema: %v\n", err)
	return nil
}
