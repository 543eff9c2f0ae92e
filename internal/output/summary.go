package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/standup-scraper/internal/types"
)

const (
	summaryWidth      = 50
	defaultShowLimit  = 5
	noneIdentified    = "None identified"
	summaryTitle      = "PROCESSING SUMMARY"
	confidenceDecimal = "%.2f"
)

// Printer renders human-readable report summaries for the CLI.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// PrintSummary prints the run counters.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSummary(report *types.RunReport) {
	rule := strings.Repeat("=", summaryWidth)
	fmt.Fprintf(p.out, "\n%s\n%s\n%s\n", rule, summaryTitle, rule)
	fmt.Fprintf(p.out, "Run ID:             %s\n", report.RunID)
	fmt.Fprintf(p.out, "Total messages:     %d\n", report.Total)
	fmt.Fprintf(p.out, "Processed messages: %d\n", report.Succeeded)
	fmt.Fprintf(p.out, "Failed messages:    %d\n", report.Failed)
	if report.Total > 0 {
		fmt.Fprintf(p.out, "Success rate:       %.1f%%\n", float64(report.Succeeded)/float64(report.Total)*100)
	}
	fmt.Fprintf(p.out, "%s\n", rule)
}

// PrintResults prints per-message details, up to limit records
// (limit <= 0 shows the default of five).
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintResults(report *types.RunReport, limit int) {
	if limit <= 0 {
		limit = defaultShowLimit
	}
	shown := report.Records
	if len(shown) > limit {
		shown = shown[:limit]
	}

	rule := strings.Repeat("-", summaryWidth)
	for i := range shown {
		record := &shown[i]
		fmt.Fprintf(p.out, "\n%s\n", rule)
		fmt.Fprintf(p.out, "Message %d - %s (%s)\n", i+1, record.User.DisplayName, record.Raw.Timestamp)
		fmt.Fprintf(p.out, "%s\n", rule)
		fmt.Fprintf(p.out, "Original: %s\n", record.Raw.Text)

		if record.Extraction != nil {
			fmt.Fprintf(p.out, "\nProgress: %s\n", orDefault(record.Extraction.Progress))
			fmt.Fprintf(p.out, "Next Steps: %s\n", orDefault(record.Extraction.NextSteps))
			fmt.Fprintf(p.out, "Confidence: "+confidenceDecimal+"\n", record.Extraction.Confidence)
		} else {
			fmt.Fprintf(p.out, "\nError: %s\n", record.Error)
		}
	}

	if remaining := len(report.Records) - len(shown); remaining > 0 {
		fmt.Fprintf(p.out, "\n... and %d more messages\n", remaining)
	}
}

func orDefault(s *string) string {
	if s == nil {
		return noneIdentified
	}
	return *s
}
