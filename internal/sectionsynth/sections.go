// Package sectionsynth implements the hierarchical section synthesizer from
// spec §4.7: parse sections from the plan, classify results into them, then
// synthesize each section concurrently. Grounded on the teacher's
// synthesis.go STORM-phase outline/section shape (GenerateDraftOutline →
// per-section writing) generalized into the exact three-operation pipeline
// the spec specifies.
package sectionsynth

import (
	"regexp"
	"strconv"
	"strings"
)

// Section is one parsed section of the report plan.
type Section struct {
	ID          string
	Title       string
	Description string
}

var headingRE = regexp.MustCompile(`(?m)^##\s+(.+)$`)

// ParseSections splits the plan on "##" headings (no LLM call). If none are
// found, returns one synthetic section covering the whole plan (spec
// §4.7.1).
func ParseSections(plan string) []Section {
	matches := headingRE.FindAllStringSubmatchIndex(plan, -1)
	if len(matches) == 0 {
		return []Section{{ID: "section-1", Title: "Research Findings", Description: plan}}
	}

	sections := make([]Section, 0, len(matches))
	for i, m := range matches {
		titleStart, titleEnd := m[2], m[3]
		title := strings.TrimSpace(plan[titleStart:titleEnd])

		bodyStart := m[1]
		bodyEnd := len(plan)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		description := strings.TrimSpace(plan[bodyStart:bodyEnd])

		sections = append(sections, Section{
			ID:          sectionID(i),
			Title:       title,
			Description: description,
		})
	}
	return sections
}

func sectionID(i int) string {
	return "section-" + strconv.Itoa(i+1)
}
