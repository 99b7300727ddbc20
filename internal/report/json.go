package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/memgate/engine/pkg/types"
)

// JSONReport is the on-disk shape written to
// <output>/<dataset_stem>.results.json.
type JSONReport struct {
	Version       string               `json:"version"`
	Timestamp     string               `json:"timestamp"`
	DatasetName   string               `json:"dataset_name"`
	Results       []types.SampleResult `json:"results"`
	Summary       JSONSummary          `json:"summary"`
	TotalCost     float64              `json:"total_cost,omitempty"`
	TotalDuration int64                `json:"total_duration_ms"`
}

// JSONSummary tallies the run's confusion matrix and derived metrics.
type JSONSummary struct {
	Total               int     `json:"total"`
	Accepted            int     `json:"accepted"`
	RejectedBelowThresh int     `json:"rejected_below_threshold"`
	RejectedPhatic      int     `json:"rejected_phatic"`
	Correct             int     `json:"correct"`
	Accuracy            float64 `json:"accuracy"`
	Precision           float64 `json:"precision"`
	Recall              float64 `json:"recall"`
	F1                  float64 `json:"f1"`

	PerLabel    []MetricRow `json:"per_label,omitempty"`
	PerCategory []MetricRow `json:"per_category,omitempty"`
}

// MetricRow is one row of a per-label or per-category breakdown: the raw
// confusion counts plus the precision/recall/F1 derived from them.
type MetricRow struct {
	Name      string          `json:"name"`
	Confusion types.Confusion `json:"confusion"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1"`
}

func metricRows(tallies map[string]types.Confusion) []MetricRow {
	if len(tallies) == 0 {
		return nil
	}
	names := make([]string, 0, len(tallies))
	for name := range tallies {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]MetricRow, 0, len(names))
	for _, name := range names {
		c := tallies[name]
		rows = append(rows, MetricRow{
			Name:      name,
			Confusion: c,
			Precision: c.Precision(),
			Recall:    c.Recall(),
			F1:        c.F1(),
		})
	}
	return rows
}

// GenerateJSONReport marshals an EvalResult into the indented JSON shape
// the CLI writes to disk.
func GenerateJSONReport(result types.EvalResult) ([]byte, error) {
	summary := JSONSummary{
		Total:       len(result.Results),
		Accuracy:    result.Confusion.Accuracy(),
		Precision:   result.Confusion.Precision(),
		Recall:      result.Confusion.Recall(),
		F1:          result.Confusion.F1(),
		PerLabel:    metricRows(result.PerLabel),
		PerCategory: metricRows(result.PerCategory),
	}
	for _, sr := range result.Results {
		if sr.Correct {
			summary.Correct++
		}
		switch {
		case sr.Output.Decision == types.DecisionAccept:
			summary.Accepted++
		case sr.Output.Reason == types.ReasonPhatic:
			summary.RejectedPhatic++
		default:
			summary.RejectedBelowThresh++
		}
	}

	report := JSONReport{
		Version:       "1.0",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		DatasetName:   result.DatasetName,
		Results:       result.Results,
		Summary:       summary,
		TotalCost:     result.TotalCost,
		TotalDuration: result.TotalDurationMS,
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal JSON report: %w", err)
	}
	return output, nil
}
