// Package types provides type definitions for structured data used throughout the wcag-check system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ImageAltRuleID is the axe-core rule id for images without alternative text.
const ImageAltRuleID = "image-alt"

// Impact is the axe-core severity of a violated rule.
type Impact string

// Known impact levels. Anything else (including an absent impact) is unknown.
const (
	ImpactCritical Impact = "critical"
	ImpactSerious  Impact = "serious"
	ImpactModerate Impact = "moderate"
	ImpactMinor    Impact = "minor"
)

// Known reports whether the impact is one of the four axe-core levels.
func (i Impact) Known() bool {
	switch i {
	case ImpactCritical, ImpactSerious, ImpactModerate, ImpactMinor:
		return true
	default:
		return false
	}
}

// AuditReport is the result of running axe-core against a page (v2 reporter shape).
type AuditReport struct {
	URL          string      `json:"url" validate:"required"`
	Timestamp    string      `json:"timestamp,omitempty"`
	TestEngine   *TestEngine `json:"testEngine,omitempty"`
	Violations   []Violation `json:"violations" validate:"dive"`
	Passes       []Violation `json:"passes" validate:"dive"`
	Incomplete   []Violation `json:"incomplete" validate:"dive"`
	Inapplicable []Violation `json:"inapplicable" validate:"dive"`
}

// TestEngine identifies the rule engine that produced a report.
type TestEngine struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Violation is one evaluated rule together with the nodes it matched.
// The same shape is used for passes, incomplete and inapplicable entries.
type Violation struct {
	ID          string          `json:"id" validate:"required"`
	Impact      Impact          `json:"impact,omitempty"`
	Help        string          `json:"help"`
	HelpURL     string          `json:"helpUrl"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags,omitempty"`
	Nodes       []ViolationNode `json:"nodes"`
}

// ViolationNode is a single DOM element matched by a rule.
type ViolationNode struct {
	HTML           string   `json:"html"`
	Target         Selector `json:"target"`
	FailureSummary string   `json:"failureSummary,omitempty"`
	Impact         Impact   `json:"impact,omitempty"`
}

// Selector is the ordered list of CSS selectors that locate a node.
// axe-core nests selectors for elements inside shadow roots; those are
// flattened and joined with " >>> ".
type Selector []string

// UnmarshalJSON accepts both plain string entries and nested string lists.
func (s *Selector) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("target must be an array: %w", err)
	}

	out := make(Selector, 0, len(raw))
	for _, entry := range raw {
		var single string
		if err := json.Unmarshal(entry, &single); err == nil {
			out = append(out, single)
			continue
		}
		var nested []string
		if err := json.Unmarshal(entry, &nested); err != nil {
			return fmt.Errorf("target entry must be a string or list of strings: %w", err)
		}
		out = append(out, strings.Join(nested, " >>> "))
	}

	*s = out
	return nil
}

// Validate checks the structural shape of the report.
func (r *AuditReport) Validate() error {
	if r == nil {
		return fmt.Errorf("audit report is nil")
	}
	validate := validator.New()
	return validate.Struct(r)
}

// FindViolation returns the violation with the given rule id, or nil.
func (r *AuditReport) FindViolation(id string) *Violation {
	for i := range r.Violations {
		if r.Violations[i].ID == id {
			return &r.Violations[i]
		}
	}
	return nil
}
