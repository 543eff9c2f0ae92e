package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jonathan/standup-scraper/internal/types"
)

// csvHeader defines the tabular column order.
var csvHeader = []string{
	"author_display_name",
	"timestamp",
	"text",
	"progress",
	"next_steps",
	"confidence",
	"error",
}

// WriteCSV flattens each record to one row. The error column is empty on
// success; the confidence column is empty on failure.
func WriteCSV(w io.Writer, report *types.RunReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range report.Records {
		record := &report.Records[i]
		flat := nilSafeExtraction(record)
		row := []string{
			record.User.DisplayName,
			record.Raw.Timestamp.Format(time.RFC3339),
			record.Raw.Text,
			orEmpty(flat.progress),
			orEmpty(flat.nextSteps),
			flat.confidence,
			string(record.Error),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

type flatExtraction struct {
	progress   *string
	nextSteps  *string
	confidence string
}

func nilSafeExtraction(record *types.ProcessedRecord) flatExtraction {
	if record.Extraction == nil {
		return flatExtraction{}
	}
	return flatExtraction{
		progress:   record.Extraction.Progress,
		nextSteps:  record.Extraction.NextSteps,
		confidence: strconv.FormatFloat(record.Extraction.Confidence, 'f', 2, 64),
	}
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
