package promptlib

import "fmt"

// bannedVaguePhrases are disallowed in the final report body (spec §4.9).
var bannedVaguePhrases = []string{
	"it is important to note that",
	"in today's fast-paced world",
	"at the end of the day",
	"moving forward",
	"it goes without saying",
}

// bannedTableTypes and requiredTableTypes enumerate the analytical-table
// rules from spec §4.9.
var bannedTableTypes = []string{"feature lists", "timeline-only tables", "raw data dumps"}
var requiredTableTypeExamples = []string{
	"cross-tabulation matrix",
	"comparative scoring matrix",
	"decomposition waterfall",
	"risk-impact quadrant",
}

// AcademicReportPrompt builds the prompt for buildAcademicReportPrompt
// (spec §4.9). criticalAnalysis and computationalResultSummary may be
// empty.
func AcademicReportPrompt(plan, structuredContext, referencesBlock, requirement, criticalAnalysis, computationalResultSummary string) string {
	critical := "(not available)"
	if criticalAnalysis != "" {
		critical = Sanitize(criticalAnalysis)
	}
	computational := "(no computational analysis available)"
	if computationalResultSummary != "" {
		computational = Sanitize(computationalResultSummary)
	}

	return fmt.Sprintf(`Report plan:
%s

Structured research context:
%s

Available references (cite by [N]):
%s

Additional requirement: %s

Critical analysis:
%s

Computational findings:
%s

Write the final report to these rules:
- MECE section structure (mutually exclusive, collectively exhaustive).
- Pyramid Principle: state the conclusion first in every section, then the
  supporting evidence.
- Claim-Evidence-Implication pattern for every substantive paragraph.
- At least 3000 words.
- At least 15 unique citations in [N] form, N matching a reference above.
- 3-5 analytical tables in standard Markdown pipe-table syntax. Banned table
  types: %s. Favor tables like: %s.
- Include a forward-looking analysis covering the next 2-5 years.
- Do not use these phrases: %s.`,
		Sanitize(plan), Sanitize(structuredContext), Sanitize(referencesBlock), Sanitize(requirement),
		critical, computational,
		joinComma(bannedTableTypes), joinComma(requiredTableTypeExamples), joinComma(bannedVaguePhrases))
}
