package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/memgate/engine/pkg/types"
)

// MarkdownReport holds data for a Markdown PR-comment-style summary.
type MarkdownReport struct {
	Title  string
	RunAt  time.Time
	Result types.EvalResult
}

// GenerateMarkdown writes a Markdown-formatted report to w.
func GenerateMarkdown(w io.Writer, r *MarkdownReport) error {
	title := r.Title
	if title == "" {
		title = "Gate Evaluation Report"
	}
	if _, err := fmt.Fprintf(w, "## %s\n\n", title); err != nil {
		return err
	}

	if !r.RunAt.IsZero() {
		if _, err := fmt.Fprintf(w, "**Run at:** %s\n\n", r.RunAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}

	results := r.Result.Results
	var accepted, rejectedBelow, rejectedPhatic int
	for _, sr := range results {
		switch {
		case sr.Output.Decision == types.DecisionAccept:
			accepted++
		case sr.Output.Reason == types.ReasonPhatic:
			rejectedPhatic++
		default:
			rejectedBelow++
		}
	}

	if _, err := fmt.Fprintf(w, "**Results:** %s total — %d accepted, %d rejected (below threshold), %d rejected (phatic)\n\n",
		humanize.Comma(int64(len(results))), accepted, rejectedBelow, rejectedPhatic); err != nil {
		return err
	}

	c := r.Result.Confusion
	if _, err := fmt.Fprintf(w, "**Accuracy:** %.3f  **Precision:** %.3f  **Recall:** %.3f  **F1:** %.3f\n\n",
		c.Accuracy(), c.Precision(), c.Recall(), c.F1()); err != nil {
		return err
	}

	if r.Result.TotalCost > 0 {
		if _, err := fmt.Fprintf(w, "**Cost:** $%.6f\n\n", r.Result.TotalCost); err != nil {
			return err
		}
	}

	if r.Result.TotalDurationMS > 0 {
		d := time.Duration(r.Result.TotalDurationMS) * time.Millisecond
		if _, err := fmt.Fprintf(w, "**Duration:** %s\n\n", d.String()); err != nil {
			return err
		}
	}

	if err := writeMetricsTable(w, "Per-category metrics", r.Result.PerCategory); err != nil {
		return err
	}
	if err := writeMetricsTable(w, "Per-label metrics", r.Result.PerLabel); err != nil {
		return err
	}

	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "_No samples evaluated._")
		return err
	}

	if _, err := fmt.Fprintln(w, "| Sample | Decision | Overall | Expected | Correct |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|--------|----------|---------|----------|---------|"); err != nil {
		return err
	}

	for _, sr := range results {
		icon := decisionIcon(sr.Output.Decision, sr.Output.Reason)
		correctIcon := ":white_check_mark:"
		if !sr.Correct {
			correctIcon = ":x:"
		}
		id := strings.ReplaceAll(sr.Sample.ID, "|", "\\|")
		if _, err := fmt.Fprintf(w, "| `%s` | %s %s | %.3f | %s | %s |\n",
			id, icon, decisionLabel(sr.Output.Decision, sr.Output.Reason), sr.Output.Overall, sr.Sample.ExpectedDecision, correctIcon); err != nil {
			return err
		}
	}

	return nil
}

// writeMetricsTable writes a Markdown table of confusion-derived metrics
// keyed by name (label id or category name), sorted for deterministic
// output. Emits nothing when tallies is empty.
func writeMetricsTable(w io.Writer, title string, tallies map[string]types.Confusion) error {
	if len(tallies) == 0 {
		return nil
	}

	names := make([]string, 0, len(tallies))
	for name := range tallies {
		names = append(names, name)
	}
	sort.Strings(names)

	if _, err := fmt.Fprintf(w, "**%s**\n\n", title); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "| Name | TP | FP | TN | FN | Precision | Recall | F1 |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|------|----|----|----|----|-----------|--------|-----|"); err != nil {
		return err
	}
	for _, name := range names {
		c := tallies[name]
		if _, err := fmt.Fprintf(w, "| `%s` | %d | %d | %d | %d | %.3f | %.3f | %.3f |\n",
			name, c.TruePositive, c.FalsePositive, c.TrueNegative, c.FalseNegative,
			c.Precision(), c.Recall(), c.F1()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return nil
}

func decisionLabel(d types.Decision, reason types.RejectReason) string {
	if d == types.DecisionAccept {
		return "accept"
	}
	if reason == types.ReasonPhatic {
		return "reject (phatic)"
	}
	return "reject (below threshold)"
}

func decisionIcon(d types.Decision, reason types.RejectReason) string {
	switch {
	case d == types.DecisionAccept:
		return ":white_check_mark:"
	case reason == types.ReasonPhatic:
		return ":speech_balloon:"
	default:
		return ":x:"
	}
}
