// Package output serializes run reports to their destination formats and
// renders console summaries.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/standup-scraper/internal/types"
)

// Format selects the report serialization.
type Format string

// Supported report formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format selector from CLI/config input.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want json or csv)", s)
	}
}

// Manager writes timestamped report files into an output directory.
type Manager struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a Manager, creating the output directory if needed.
func NewManager(dir string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Manager{dir: dir, logger: logger, now: time.Now}, nil
}

// Save writes the report in the requested format and returns the path.
func (m *Manager) Save(report *types.RunReport, format Format) (string, error) {
	name := fmt.Sprintf("standup_report_%s.%s", m.now().Format("20060102_150405"), format)
	path := filepath.Join(m.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	switch format {
	case FormatJSON:
		err = WriteJSON(f, report)
	case FormatCSV:
		err = WriteCSV(f, report)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return "", err
	}

	m.logger.Info("report saved", zap.String("path", path))
	return path, nil
}
