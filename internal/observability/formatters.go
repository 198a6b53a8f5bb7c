// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/wcag-check/internal/summary"
	"github.com/jonathan/wcag-check/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for the CLI commands
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

// PrintSummary outputs counts, percentages, the severity breakdown and the
// severity-ordered rule list of an audit.
func (p *Printer) PrintSummary(s summary.Summary) {
	var sb strings.Builder

	if s.URL != "" {
		sb.WriteString(fmt.Sprintf("URL: %s\n\n", s.URL))
	}

	sb.WriteString(fmt.Sprintf("Passes:       %4d  (%5.1f%%)\n", s.Counts.Passes, s.Percentages.Passes))
	sb.WriteString(fmt.Sprintf("Incomplete:   %4d  (%5.1f%%)\n", s.Counts.Incomplete, s.Percentages.Incomplete))
	sb.WriteString(fmt.Sprintf("Violations:   %4d  (%5.1f%%)\n", s.Counts.Violations, s.Percentages.Violations))
	sb.WriteString(fmt.Sprintf("Inapplicable: %4d\n", s.Counts.Inapplicable))

	if s.SeverityTally.Total() > 0 {
		sb.WriteString("\nSeverity:\n")
		sb.WriteString(fmt.Sprintf("  critical  %4d  (%5.1f%%)\n", s.SeverityTally.Critical, s.SeverityPercentages.Critical))
		sb.WriteString(fmt.Sprintf("  serious   %4d  (%5.1f%%)\n", s.SeverityTally.Serious, s.SeverityPercentages.Serious))
		sb.WriteString(fmt.Sprintf("  moderate  %4d  (%5.1f%%)\n", s.SeverityTally.Moderate, s.SeverityPercentages.Moderate))
		sb.WriteString(fmt.Sprintf("  minor     %4d  (%5.1f%%)\n", s.SeverityTally.Minor, s.SeverityPercentages.Minor))
	}

	if len(s.Items) > 0 {
		if s.ItemsSource == summary.SourceInapplicable {
			sb.WriteString("\nNo violations. Inapplicable rules:\n")
		} else {
			sb.WriteString("\nViolations by severity:\n")
		}
		count := min(len(s.Items), maxItemsToShow)
		for i := 0; i < count; i++ {
			item := s.Items[i]
			impact := string(item.Impact)
			if impact == "" {
				impact = "-"
			}
			sb.WriteString(fmt.Sprintf("  • [%s] %s", impact, item.ID))
			if n := len(item.Nodes); n > 0 {
				sb.WriteString(fmt.Sprintf(" (%d)", n))
			}
			sb.WriteString("\n")
		}
		if len(s.Items) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(s.Items)-maxItemsToShow))
		}
	}

	p.printBox("WCAG AUDIT SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRemediation outputs one line per remediation result with its alt text or outcome.
func (p *Printer) PrintRemediation(results []types.RemediationResult) {
	var sb strings.Builder

	var succeeded, skipped, failed int
	for _, r := range results {
		switch r.Outcome.Kind {
		case types.OutcomeSuccess:
			succeeded++
		case types.OutcomeSkipped:
			skipped++
		case types.OutcomeFailure:
			failed++
		}
	}
	sb.WriteString(fmt.Sprintf("Images: %d  captioned: %d  skipped: %d  failed: %d\n",
		len(results), succeeded, skipped, failed))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n#%d  %s\n", i+1, r.ImageURL))
		switch {
		case r.Outcome.Kind == types.OutcomeSkipped:
			sb.WriteString(fmt.Sprintf("    skipped: %s\n", r.Outcome.Reason))
		case r.AltText != nil && r.Outcome.IsFailure():
			sb.WriteString(fmt.Sprintf("    alt: %s (%s)\n", *r.AltText, r.Outcome.Reason))
		case r.AltText != nil:
			sb.WriteString(fmt.Sprintf("    alt: %s\n", *r.AltText))
		}
	}

	p.printBox("GENERATED ALT TEXT", strings.TrimSuffix(sb.String(), "\n"))
}
