package archive

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ResultsPendingMarker stands in for results until they are pulled from the platform.
const ResultsPendingMarker = "> Results: (TODO)"

// Summary is the human-readable report for a run.
type Summary struct {
	Project   string
	Name      string
	Generated time.Time
}

// Render formats the summary as Markdown.
func (s Summary) Render() string {
	var builder strings.Builder
	builder.WriteString("# Backtest Summary\n\n")
	builder.WriteString(fmt.Sprintf("- Project: %s\n", s.Project))
	builder.WriteString(fmt.Sprintf("- Name: %s\n", s.Name))
	builder.WriteString(fmt.Sprintf("- UTC: %s\n", Timestamp(s.Generated)))
	builder.WriteString("\n")
	builder.WriteString(ResultsPendingMarker + "\n")
	return builder.String()
}

// WriteSummary writes summary.md into dir.
func (w *Writer) WriteSummary(dir string, summary Summary) error {
	return writeFile(filepath.Join(dir, SummaryFile), []byte(summary.Render()))
}
