package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `{
	"url": "https://ex.com",
	"testEngine": {"name": "axe-core", "version": "4.10.2"},
	"violations": [
		{
			"id": "image-alt",
			"impact": "critical",
			"help": "Images must have alternative text",
			"helpUrl": "https://dequeuniversity.com/rules/axe/4.10/image-alt",
			"description": "Ensures <img> elements have alternate text",
			"nodes": [
				{"html": "<img src=\"/a.png\">", "target": ["img"], "failureSummary": "Fix any of the following"},
				{"html": "<span></span>", "target": [["my-app", "span.icon"]], "failureSummary": "x"}
			]
		},
		{"id": "region", "impact": null, "help": "", "helpUrl": "", "description": "", "nodes": []}
	],
	"passes": [],
	"incomplete": [],
	"inapplicable": []
}`

func TestAuditReport_Unmarshal(t *testing.T) {
	var report AuditReport
	require.NoError(t, json.Unmarshal([]byte(sampleReport), &report))

	assert.Equal(t, "https://ex.com", report.URL)
	require.Len(t, report.Violations, 2)
	assert.Equal(t, ImpactCritical, report.Violations[0].Impact)
	assert.Equal(t, Impact(""), report.Violations[1].Impact)

	nodes := report.Violations[0].Nodes
	require.Len(t, nodes, 2)
	assert.Equal(t, Selector{"img"}, nodes[0].Target)
	assert.Equal(t, Selector{"my-app >>> span.icon"}, nodes[1].Target)
}

func TestSelector_RejectsNonArray(t *testing.T) {
	var s Selector
	assert.Error(t, json.Unmarshal([]byte(`"img"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`[42]`), &s))
}

func TestAuditReport_Validate(t *testing.T) {
	var report AuditReport
	require.NoError(t, json.Unmarshal([]byte(sampleReport), &report))
	assert.NoError(t, report.Validate())

	report.URL = ""
	assert.Error(t, report.Validate())

	var nilReport *AuditReport
	assert.Error(t, nilReport.Validate())
}

func TestAuditReport_ValidateRequiresRuleID(t *testing.T) {
	report := AuditReport{
		URL:        "https://ex.com",
		Violations: []Violation{{ID: ""}},
	}
	assert.Error(t, report.Validate())
}

func TestAuditReport_FindViolation(t *testing.T) {
	var report AuditReport
	require.NoError(t, json.Unmarshal([]byte(sampleReport), &report))

	v := report.FindViolation(ImageAltRuleID)
	require.NotNil(t, v)
	assert.Len(t, v.Nodes, 2)
	assert.Nil(t, report.FindViolation("color-contrast"))
}

func TestImpact_Known(t *testing.T) {
	assert.True(t, ImpactCritical.Known())
	assert.True(t, ImpactMinor.Known())
	assert.False(t, Impact("").Known())
	assert.False(t, Impact("blocker").Known())
}

func TestRemediationResult_JSON(t *testing.T) {
	text := "a dog on a beach"
	data, err := json.Marshal(RemediationResult{
		ImageURL: "https://ex.com/a.png",
		AltText:  &text,
		Outcome:  Success(text),
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"altText":"a dog on a beach"`)
	assert.Contains(t, string(data), `"kind":"success"`)

	data, err = json.Marshal(RemediationResult{ImageURL: "x", Outcome: Skipped(ReasonAnimatedImage)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"altText":null`)
	assert.Contains(t, string(data), `"reason":"animated_image"`)
}
