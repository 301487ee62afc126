// package formatter renders migration run reports as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/shared"
)

// Format is a report output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Report is the exportable summary of one migration run.
type Report struct {
	RunID        string               `json:"run_id,omitempty"`
	Sequence     int                  `json:"sequence,omitempty"`
	Viewer       string               `json:"viewer,omitempty"`
	Direction    string               `json:"direction"`
	DeletePolicy string               `json:"delete_policy"`
	DryRun       bool                 `json:"dry_run"`
	Status       string               `json:"status,omitempty"`
	Error        string               `json:"error,omitempty"`
	Fetched      int                  `json:"fetched"`
	Eligible     int                  `json:"eligible"`
	Counts       models.OutcomeCounts `json:"counts"`
	Outcomes     []models.Outcome     `json:"outcomes"`
	StartedAt    time.Time            `json:"started_at"`
	CompletedAt  time.Time            `json:"completed_at"`
}

// Duration is the wall-clock length of the run.
func (r *Report) Duration() time.Duration {
	if r.CompletedAt.IsZero() || r.CompletedAt.Before(r.StartedAt) {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt).Round(time.Second)
}

type outcomeJSON struct {
	models.Outcome
	Kind string `json:"kind"`
}

// ExportToJSON renders the report as indented JSON with outcome kinds as names.
func ExportToJSON(report *Report) ([]byte, error) {
	outcomes := make([]outcomeJSON, len(report.Outcomes))
	for i, o := range report.Outcomes {
		outcomes[i] = outcomeJSON{Outcome: o, Kind: o.Kind.String()}
	}

	data, err := json.MarshalIndent(struct {
		*Report
		Outcomes []outcomeJSON `json:"outcomes"`
	}{report, outcomes}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts the report's outcomes to CSV with columns:
// Position, Outcome, Entry ID, Media ID, Title, Destination ID, Score, Source Deleted, Reason
func ExportToCSV(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Outcome", "Entry ID", "Media ID", "Title", "Destination ID", "Score", "Source Deleted", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, o := range report.Outcomes {
		record := []string{
			strconv.Itoa(i + 1),
			o.Kind.String(),
			optionalInt(o.EntryID),
			optionalInt(o.MediaID),
			o.Title,
			optionalInt(o.DestinationID),
			optionalInt(o.Score),
			strconv.FormatBool(o.SourceDeleted),
			o.Reason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts the report to a Markdown document with a summary and an outcome table.
func ExportToMarkdown(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", reportTitle(report))

	if report.Viewer != "" {
		fmt.Fprintf(&buf, "**User**: %s\n", report.Viewer)
	}
	fmt.Fprintf(&buf, "**Direction**: %s\n", report.Direction)
	fmt.Fprintf(&buf, "**Delete policy**: %s\n", report.DeletePolicy)
	if report.DryRun {
		buf.WriteString("**Dry run**: yes\n")
	}
	if !report.StartedAt.IsZero() {
		fmt.Fprintf(&buf, "**Started**: %s\n", report.StartedAt.Format(time.RFC3339))
		fmt.Fprintf(&buf, "**Duration**: %s\n", report.Duration())
	}
	if report.Error != "" {
		fmt.Fprintf(&buf, "**Error**: %s\n", report.Error)
	}
	buf.WriteString("\n")

	buf.WriteString("## Summary\n\n")
	buf.WriteString("| Fetched | Eligible | Moved | Skipped | Failed | Lost |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	c := report.Counts
	fmt.Fprintf(&buf, "| %d | %d | %d | %d | %d | %d |\n\n",
		report.Fetched, report.Eligible, c.Moved+c.WouldMove, c.Skipped(), c.Failed, c.Lost)

	buf.WriteString("## Outcomes\n\n")
	if len(report.Outcomes) == 0 {
		buf.WriteString("_No outcomes recorded._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Outcome | Title | Entry | Destination | Score | Reason |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for i, o := range report.Outcomes {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s | %s |\n",
			i+1, o.Kind, escapeCell(o.Title), optionalInt(o.EntryID),
			optionalInt(o.DestinationID), optionalInt(o.Score), escapeCell(o.Reason))
	}

	return buf.Bytes(), nil
}

// ExportToText converts the report to plain text, one outcome per line.
func ExportToText(report *Report) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", reportTitle(report))
	if report.Viewer != "" {
		fmt.Fprintf(&buf, "User: %s\n", report.Viewer)
	}
	fmt.Fprintf(&buf, "Direction: %s (delete policy: %s)\n", report.Direction, report.DeletePolicy)
	if report.Error != "" {
		fmt.Fprintf(&buf, "Error: %s\n", report.Error)
	}
	fmt.Fprintf(&buf, "%s\n\n", Summary(report.Counts))

	for i, o := range report.Outcomes {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, DescribeOutcome(o))
	}

	return buf.Bytes(), nil
}

// Summary is a one-line tally of counts.
func Summary(c models.OutcomeCounts) string {
	s := fmt.Sprintf("Moved: %d, Skipped: %d (no title %d, no match %d), Failed: %d",
		c.Moved, c.Skipped(), c.NoTitle, c.NoMatch, c.Failed)
	if c.WouldMove > 0 {
		s = fmt.Sprintf("Would move: %d, ", c.WouldMove) + s
	}
	if c.Lost > 0 {
		s += fmt.Sprintf(", Removed without replacement: %d", c.Lost)
	}
	return s
}

// DescribeOutcome renders a single outcome as a human-readable sentence.
func DescribeOutcome(o models.Outcome) string {
	title := o.Title
	if title == "" && o.EntryID != 0 {
		title = fmt.Sprintf("entry %d", o.EntryID)
	}

	switch o.Kind {
	case models.OutcomeMoved:
		return fmt.Sprintf("Moved %s -> media %d (score %d)", title, o.DestinationID, o.Score)
	case models.OutcomeWouldMove:
		return fmt.Sprintf("Would move %s -> media %d (score %d)", title, o.DestinationID, o.Score)
	case models.OutcomeSkippedNoTitle:
		return fmt.Sprintf("Skipped %s: no native title", title)
	case models.OutcomeSkippedNoMatch:
		if o.SourceDeleted {
			return fmt.Sprintf("Skipped %s: no match found (source entry removed)", title)
		}
		return fmt.Sprintf("Skipped %s: no match found", title)
	case models.OutcomeFailed:
		return fmt.Sprintf("Failed %s: %s", title, o.Reason)
	case models.OutcomeNoEligibleEntries:
		return "No planning entries to migrate"
	case models.OutcomeNoEntriesFound:
		return "No list entries found"
	default:
		return o.Kind.String()
	}
}

// DetectFormat chooses a format from a file extension, defaulting to text.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatText
	}
}

// Export renders report in format.
func Export(report *Report, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(report)
	case FormatCSV:
		return ExportToCSV(report)
	case FormatMarkdown:
		return ExportToMarkdown(report)
	case FormatText:
		return ExportToText(report)
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteReport writes report to path in the format implied by its extension
// and returns the format used.
func WriteReport(report *Report, path string) (Format, error) {
	if path == "" {
		return "", fmt.Errorf("%w: report path", shared.ErrMissingArgument)
	}

	format := DetectFormat(path)
	data, err := Export(report, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s report: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return format, nil
}

func reportTitle(report *Report) string {
	title := "Migration " + report.Direction
	if report.Sequence > 0 {
		title = fmt.Sprintf("Run #%d: %s", report.Sequence, report.Direction)
	}
	if report.DryRun {
		title += " (dry run)"
	}
	return title
}

func optionalInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
