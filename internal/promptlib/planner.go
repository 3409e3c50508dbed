package promptlib

import (
	"fmt"
	"strings"
)

// ReportPlanPrompt builds the prompt for writeReportPlan (spec §4.5.1).
func ReportPlanPrompt(query string) string {
	return fmt.Sprintf(`You are planning a comprehensive research report on the following topic:

%s

Produce a structured plan in Markdown using "##" section headings. Each
section should cover one coherent aspect of the topic. Do not write the
report itself — only the plan.`, Sanitize(query))
}

// ResearchDomainsPrompt builds the prompt for identifyResearchDomains
// (spec §4.5.2).
func ResearchDomainsPrompt(query, plan string) string {
	return fmt.Sprintf(`Topic: %s

Report plan:
%s

Identify 2-5 research domains this topic spans. For each domain give a name,
a weight (all weights must sum to 1.0), and 2-4 search angles.

Return JSON only:
{"domains": [{"name": "...", "weight": 0.0, "searchAngles": ["...", "..."]}]}`,
		Sanitize(query), Sanitize(plan))
}

// SerpQueriesPrompt builds the prompt for generateSerpQueries (spec
// §4.5.3). domainsBlock may be empty when no domains were identified.
func SerpQueriesPrompt(query, plan, domainsBlock string, budget int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nReport plan:\n%s\n\n", Sanitize(query), Sanitize(plan))
	if domainsBlock != "" {
		fmt.Fprintf(&b, "Research domains (distribute queries proportionally to weight):\n%s\n\n", domainsBlock)
	}
	fmt.Fprintf(&b, `Generate up to %d search queries to research this topic. Each query MUST
be a 3-8 word keyword phrase, NOT a full question.

Return JSON only: ["query one", "query two", ...]`, budget)
	return b.String()
}

// DomainsBlock formats identified domains for interpolation into the SERP
// query prompt.
func DomainsBlock(names []string, weights []float64) string {
	var b strings.Builder
	for i, name := range names {
		weight := 0.0
		if i < len(weights) {
			weight = weights[i]
		}
		fmt.Fprintf(&b, "- %s (weight %.2f)\n", Sanitize(name), weight)
	}
	return b.String()
}

// FollowupQueriesPrompt builds the prompt for generateFollowupQueries
// (spec §4.5.4). Returns "" when remainingBudget <= 0 — callers must check
// this before invoking the LLM.
func FollowupQueriesPrompt(plan string, existingResultsSummary string, executedQueries []string, remainingBudget int) string {
	if remainingBudget <= 0 {
		return ""
	}
	executedBlock := strings.Join(executedQueries, "\n- ")
	return fmt.Sprintf(`Report plan:
%s

Findings so far:
%s

Already executed queries (do NOT repeat these):
- %s

Generate up to %d NEW search queries to fill remaining gaps. Each query MUST
be a 3-8 word keyword phrase, NOT a full question.

Return JSON only: ["query one", "query two", ...]`,
		Sanitize(plan), Sanitize(existingResultsSummary), Sanitize(executedBlock), remainingBudget)
}

// CompletenessReviewPrompt builds the prompt for reviewResearchCompleteness
// (spec §4.5.5).
func CompletenessReviewPrompt(plan, resultsSummary string, iteration int, sectionCoverageBlock string) string {
	return fmt.Sprintf(`Report plan:
%s

Current findings (iteration %d):
%s

Per-section coverage so far:
%s

Assess whether research is sufficient to write a comprehensive report.
isSufficient must be true iff overallCoverage >= 70 AND no single section is
below 40.

Return JSON only:
{"isSufficient": true, "overallCoverage": 0, "sections": [{"name": "...", "coverage": 0, "depth": "...", "gaps": ["..."]}], "priorityGaps": ["..."]}`,
		Sanitize(plan), iteration, Sanitize(resultsSummary), Sanitize(sectionCoverageBlock))
}

// FallbackIsSufficient implements the §4.5.5 fallback when JSON parsing
// fails: scan the first 10 characters of the raw response for "YES".
func FallbackIsSufficient(raw string) bool {
	prefix := raw
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return strings.Contains(strings.ToUpper(prefix), "YES")
}
