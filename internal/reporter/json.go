package reporter

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ppiankov/apispectre/internal/models"
)

// JSONReporter generates machine-readable JSON reports
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(writer io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		pretty: pretty,
	}
}

// Generate writes the full scan result
func (r *JSONReporter) Generate(result *models.ScanResult) error {
	return r.write(result)
}

// Summary is the compact form of a result without the issue list
type Summary struct {
	ID              string                  `json:"id"`
	ScannedAt       string                  `json:"scanned_at"`
	Score           int                     `json:"score"`
	Health          string                  `json:"health"`
	Stats           models.ScanStats        `json:"stats"`
	Trend           *models.Trend           `json:"trend,omitempty"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

// GenerateSummaryOnly creates a compact JSON summary without the issue list
func (r *JSONReporter) GenerateSummaryOnly(result *models.ScanResult) error {
	recs := result.Recommendations
	if recs == nil {
		recs = []models.Recommendation{}
	}

	return r.write(Summary{
		ID:              result.ID,
		ScannedAt:       result.ScannedAt.Format(time.RFC3339),
		Score:           result.Score,
		Health:          result.Health,
		Stats:           result.Stats,
		Trend:           result.Trend,
		Recommendations: recs,
	})
}

func (r *JSONReporter) write(v interface{}) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return err
	}

	_, err = r.writer.Write(data)
	if err != nil {
		return err
	}

	// Add trailing newline for terminal output
	_, err = r.writer.Write([]byte("\n"))
	return err
}
