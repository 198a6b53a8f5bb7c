// Package summary computes display statistics for an audit report.
package summary

import (
	"sort"

	"github.com/jonathan/wcag-check/internal/types"
)

// UnknownRank orders impacts outside the four known levels last.
const UnknownRank = 999

// ItemsSource names which report section Summary.Items was taken from.
type ItemsSource string

// Item sources.
const (
	SourceViolations   ItemsSource = "violations"
	SourceInapplicable ItemsSource = "inapplicable"
)

// Counts is the number of rules in each report section.
type Counts struct {
	Passes       int `json:"passes"`
	Incomplete   int `json:"incomplete"`
	Violations   int `json:"violations"`
	Inapplicable int `json:"inapplicable"`
}

// Percentages of passes, incomplete and violations. Inapplicable rules did
// not apply to the page and are not part of the denominator.
type Percentages struct {
	Passes     float64 `json:"passes"`
	Incomplete float64 `json:"incomplete"`
	Violations float64 `json:"violations"`
}

// SeverityTally counts violations per known impact level.
type SeverityTally struct {
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
}

// Total is the sum over the four levels.
func (t SeverityTally) Total() int {
	return t.Critical + t.Serious + t.Moderate + t.Minor
}

// SeverityPercentages is the share of each level among known-level violations.
type SeverityPercentages struct {
	Critical float64 `json:"critical"`
	Serious  float64 `json:"serious"`
	Moderate float64 `json:"moderate"`
	Minor    float64 `json:"minor"`
}

// Summary is the display-ready digest of a report.
type Summary struct {
	URL                 string              `json:"url"`
	Counts              Counts              `json:"counts"`
	Percentages         Percentages         `json:"percentages"`
	SeverityTally       SeverityTally       `json:"severityTally"`
	SeverityPercentages SeverityPercentages `json:"severityPercentages"`
	ItemsSource         ItemsSource         `json:"itemsSource"`
	Items               []types.Violation   `json:"items"`
}

// Summarize computes counts, percentages, the severity breakdown and the
// severity-ordered item list. When the page has no violations the items are
// the inapplicable rules, ordered the same way.
func Summarize(report *types.AuditReport) Summary {
	if report == nil {
		return Summary{ItemsSource: SourceViolations, Items: []types.Violation{}}
	}

	counts := Counts{
		Passes:       len(report.Passes),
		Incomplete:   len(report.Incomplete),
		Violations:   len(report.Violations),
		Inapplicable: len(report.Inapplicable),
	}

	var pct Percentages
	if total := counts.Passes + counts.Incomplete + counts.Violations; total > 0 {
		pct = Percentages{
			Passes:     percent(counts.Passes, total),
			Incomplete: percent(counts.Incomplete, total),
			Violations: percent(counts.Violations, total),
		}
	}

	tally := Tally(report.Violations)
	var sevPct SeverityPercentages
	if total := tally.Total(); total > 0 {
		sevPct = SeverityPercentages{
			Critical: percent(tally.Critical, total),
			Serious:  percent(tally.Serious, total),
			Moderate: percent(tally.Moderate, total),
			Minor:    percent(tally.Minor, total),
		}
	}

	source, items := SourceViolations, report.Violations
	if len(items) == 0 {
		source, items = SourceInapplicable, report.Inapplicable
	}

	return Summary{
		URL:                 report.URL,
		Counts:              counts,
		Percentages:         pct,
		SeverityTally:       tally,
		SeverityPercentages: sevPct,
		ItemsSource:         source,
		Items:               SortBySeverity(items),
	}
}

// Tally counts violations by known impact; unknown or absent impacts are ignored.
func Tally(violations []types.Violation) SeverityTally {
	var t SeverityTally
	for _, v := range violations {
		switch v.Impact {
		case types.ImpactCritical:
			t.Critical++
		case types.ImpactSerious:
			t.Serious++
		case types.ImpactModerate:
			t.Moderate++
		case types.ImpactMinor:
			t.Minor++
		}
	}
	return t
}

// Rank returns the sort rank of an impact: critical 1 through minor 4, unknown last.
func Rank(impact types.Impact) int {
	switch impact {
	case types.ImpactCritical:
		return 1
	case types.ImpactSerious:
		return 2
	case types.ImpactModerate:
		return 3
	case types.ImpactMinor:
		return 4
	default:
		return UnknownRank
	}
}

// SortBySeverity returns a copy ordered by impact rank. Equal ranks keep their input order.
func SortBySeverity(violations []types.Violation) []types.Violation {
	sorted := make([]types.Violation, len(violations))
	copy(sorted, violations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Rank(sorted[i].Impact) < Rank(sorted[j].Impact)
	})
	return sorted
}

func percent(part, total int) float64 {
	return float64(part) * 100 / float64(total)
}
