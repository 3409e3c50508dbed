package promptlib

import "fmt"

// IntermediateSynthesisPrompt builds the prompt for intermediateSynthesis
// (spec §4.6). previousSynthesis may be empty on the first wave.
func IntermediateSynthesisPrompt(plan, waveResultsSummary, previousSynthesis string) string {
	prior := "(none yet — this is the first wave)"
	if previousSynthesis != "" {
		prior = Sanitize(previousSynthesis)
	}
	return fmt.Sprintf(`Report plan:
%s

New findings from this wave:
%s

Prior synthesis:
%s

Integrate the new findings with the prior synthesis. Identify coverage per
section, remaining knowledge gaps, and any cross-domain links you notice.

Return JSON only:
{"synthesis": "...", "sectionCoverage": {"Section Name": {"status": "covered|partial|missing", "notes": "..."}}, "knowledgeGaps": ["..."], "crossDomainLinks": ["..."]}`,
		Sanitize(plan), Sanitize(waveResultsSummary), prior)
}

// CriticalAnalysisPrompt builds the prompt for criticalAnalysisStage
// (spec §4.6). synthesis may be empty, in which case the raw results
// summary is used instead.
func CriticalAnalysisPrompt(resultsSummary, plan, synthesis string) string {
	basis := Sanitize(resultsSummary)
	if synthesis != "" {
		basis = Sanitize(synthesis)
	}
	return fmt.Sprintf(`Report plan:
%s

Accumulated research:
%s

Write an unconditional multi-perspective critique of this research: what is
well-supported, what is weak or contradictory, what alternative
interpretations exist, and what a skeptical reader would challenge.`,
		Sanitize(plan), basis)
}
