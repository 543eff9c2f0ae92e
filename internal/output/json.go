package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jonathan/standup-scraper/internal/types"
)

// WriteJSON serializes the report as indented JSON. Every field of every
// record is written, error cases included; absent extraction fields are
// explicit nulls so a parse of the output reproduces the report exactly.
func WriteJSON(w io.Writer, report *types.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// ReadJSON parses a report previously written by WriteJSON.
func ReadJSON(r io.Reader) (*types.RunReport, error) {
	var report types.RunReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}
