package output

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/standup-scraper/internal/schemas"
	"github.com/jonathan/standup-scraper/internal/types"
)

func strPtr(s string) *string { return &s }

func sampleReport() *types.RunReport {
	ts := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	return &types.RunReport{
		RunID:       uuid.MustParse("b9a4f0a2-3c61-4d6e-9a1b-2f4c8d9e0a11"),
		GeneratedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		Total:       3,
		Succeeded:   2,
		Failed:      1,
		Records: []types.ProcessedRecord{
			{
				Raw:  types.RawMessage{AuthorID: "U1", Timestamp: ts, Text: "finished importer", ChannelID: "C1"},
				User: types.ResolvedUser{ID: "U1", DisplayName: "ada"},
				Extraction: &types.ExtractionResult{
					Progress:    strPtr("finished importer"),
					NextSteps:   strPtr("load tests"),
					Confidence:  0.9,
					ProcessedAt: ts.Add(30 * time.Minute),
				},
			},
			{
				Raw:  types.RawMessage{AuthorID: "U2", Timestamp: ts.Add(time.Minute), Text: "standup done", ChannelID: "C1", ThreadTS: "1700000001.000100"},
				User: types.ResolvedUser{ID: "U2", DisplayName: "bob"},
				Extraction: &types.ExtractionResult{
					Progress:    strPtr("standup done"),
					NextSteps:   nil,
					Confidence:  0.6,
					ProcessedAt: ts.Add(31 * time.Minute),
				},
			},
			{
				Raw:   types.RawMessage{AuthorID: "U3", Timestamp: ts.Add(2 * time.Minute), Text: "??", ChannelID: "C1"},
				User:  types.ResolvedUser{ID: "U3", DisplayName: "user_U3"},
				Error: types.ErrorKindRateLimitExhausted,
			},
		},
	}
}

func TestWriteJSON_RoundTripIsExact(t *testing.T) {
	report := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, report))

	parsed, err := ReadJSON(&buf)
	require.NoError(t, err)

	assert.Equal(t, report, parsed)
}

func TestWriteJSON_ValidatesAgainstSchema(t *testing.T) {
	schemaPath := schemas.ResolveSchemaPath(schemas.RunReportSchema)
	require.NotEmpty(t, schemaPath, "run report schema not found")

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	schemaContent, err := os.ReadFile(schemaPath)
	require.NoError(t, err)
	require.NoError(t, schemas.ValidateString(string(schemaContent), buf.String()))
}

func TestWriteJSON_AbsentFieldsAreNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, `"next_steps": null`)
	assert.Contains(t, out, `"error": "rate_limit_exhausted"`)
}
