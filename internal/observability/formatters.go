// Package observability provides formatted output utilities for the CLI
// commands.
package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/daniel/graph-integrator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxMotifsToShow is the number of motifs displayed in a run summary
	maxMotifsToShow = 5
)

// Printer handles formatted output for CLI results
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRun outputs a human-readable summary of a pipeline run result.
func (p *Printer) PrintRun(run *types.PipelineRun) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", run.RunID))
	sb.WriteString(fmt.Sprintf("Tenant:   %s\n", run.TenantID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", run.Status))
	if run.Stage1JobID != "" {
		sb.WriteString(fmt.Sprintf("Graph:    %s\n", run.Stage1JobID))
	}
	if run.Stage2JobID != "" {
		sb.WriteString(fmt.Sprintf("Database: %s (ready: %t)\n", run.Stage2JobID, run.Stage2Ready))
	}
	if run.Error != nil {
		sb.WriteString(fmt.Sprintf("Error:    [%s] %s\n", run.Error.Kind, run.Error.Message))
	}

	if len(run.Motifs) > 0 {
		sb.WriteString(fmt.Sprintf("\nMotifs (%d found):\n", len(run.Motifs)))
		count := min(len(run.Motifs), maxMotifsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, compactJSON(run.Motifs[i])))
		}
		if len(run.Motifs) > count {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(run.Motifs)-count))
		}
	}
	if len(run.Statistics) > 0 {
		sb.WriteString(fmt.Sprintf("\nStatistics: %s\n", compactJSON(run.Statistics)))
	}

	p.printBox("Pipeline Run", sb.String())
}

// PrintAnnotation outputs a human-readable summary of an annotation result.
func (p *Printer) PrintAnnotation(result *types.AnnotationResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", result.RunID))
	sb.WriteString(fmt.Sprintf("Database: %s\n", result.Stage2JobID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", result.Status))
	if result.Error != nil {
		sb.WriteString(fmt.Sprintf("Error:    [%s] %s\n", result.Error.Kind, result.Error.Message))
	}
	if len(result.Annotation) > 0 {
		sb.WriteString(fmt.Sprintf("\nAnnotation: %s\n", compactJSON(result.Annotation)))
	}

	p.printBox("Motif Annotation", sb.String())
}

// compactJSON renders a raw JSON value on one line.
func compactJSON(raw json.RawMessage) string {
	var buf strings.Builder
	dec := json.NewEncoder(&buf)
	dec.SetEscapeHTML(false)
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if err := dec.Encode(v); err != nil {
		return string(raw)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
