package promptlib

import "fmt"

// ClassifyResultsToSectionsPrompt builds the prompt for
// classifyResultsToSections (spec §4.7.2).
func ClassifyResultsToSectionsPrompt(sectionTitles []string, resultsSummary string) string {
	return fmt.Sprintf(`Report sections:
%s

Search results:
%s

For each result (by its 0-based index), list which section(s) it is
relevant to. A result may belong to more than one section.

Return JSON only: {"Section Title": [0, 2, 5], ...}`, joinNumbered(sectionTitles), Sanitize(resultsSummary))
}

// SynthesizeSectionPrompt builds the prompt for synthesizeSection
// (spec §4.7.3).
func SynthesizeSectionPrompt(sectionTitle, sectionDescription, truncatedResults, plan, referencesBlock, language string) string {
	langNote := ""
	if language != "" {
		langNote = fmt.Sprintf("\n\nWrite in: %s", language)
	}
	return fmt.Sprintf(`Full report plan (for context):
%s

Section: %s
%s

Evidence for this section:
%s

Available references:
%s

Write this section's synthesis. Every claim must cite a reference id in
[N] form where N matches an id above.%s

Return JSON only:
{"synthesis": "...", "evidenceIndex": [{"claim": "...", "sourceIds": [1,2], "confidence": "low|medium|high"}], "keyDataPoints": ["..."]}`,
		Sanitize(plan), Sanitize(sectionTitle), Sanitize(sectionDescription), Sanitize(truncatedResults), Sanitize(referencesBlock), langNote)
}

func joinNumbered(items []string) string {
	out := ""
	for i, item := range items {
		out += fmt.Sprintf("%d. %s\n", i+1, Sanitize(item))
	}
	return out
}
