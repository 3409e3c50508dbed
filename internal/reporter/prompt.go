package reporter

import (
	"fmt"

	"deepresearch/internal/core"
	"deepresearch/internal/promptlib"
)

// BuildAcademicReportPrompt assembles the heavily-structured instruction
// block for the final report (spec §4.9), delegating template text to
// promptlib and only formatting the references block here since that
// formatting is reporter-owned (reference IDs are assigned by
// ExtractReferences).
func BuildAcademicReportPrompt(plan, structuredContext string, references []core.Reference, requirement, criticalAnalysis string, computational *core.ComputationResult) string {
	refsBlock := formatReferencesBlockForPrompt(references)

	computationalSummary := ""
	if computational != nil {
		computationalSummary = fmt.Sprintf("%d figures generated across %d code executions; total execution time %s.",
			len(computational.Figures), len(computational.Code), computational.ExecutionTime)
	}

	return promptlib.AcademicReportPrompt(plan, structuredContext, refsBlock, requirement, criticalAnalysis, computationalSummary)
}

func formatReferencesBlockForPrompt(refs []core.Reference) string {
	out := ""
	for _, r := range refs {
		out += fmt.Sprintf("[%d] %s (%s)\n", r.ID, r.Title, r.URL)
	}
	return out
}
