package sectionsynth

import (
	"context"
	"fmt"

	"deepresearch/internal/core"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/promptlib"
)

// Client is the narrow LLM surface section synthesis needs.
type Client interface {
	Generate(ctx context.Context, messages []llmprovider.Message, opts llmprovider.Options) (string, llmprovider.TokenInfo, error)
}

// ClassifyResultsToSections maps each section title to the indices of
// results relevant to it, via one LLM call. On parse failure, every result
// is assigned to every section (spec §4.7.2) — the safe, inclusive default.
func ClassifyResultsToSections(ctx context.Context, client Client, sections []Section, results []core.SearchResult, summarize func([]core.SearchResult) string) (map[string][]int, error) {
	titles := make([]string, len(sections))
	for i, s := range sections {
		titles[i] = s.Title
	}

	prompt := promptlib.ClassifyResultsToSectionsPrompt(titles, summarize(results))
	text, _, err := client.Generate(ctx, []llmprovider.Message{{Role: "user", Content: prompt}}, llmprovider.Options{Temperature: 0.2})
	if err != nil {
		return allResultsToAllSections(titles, len(results)), nil
	}

	var parsed map[string][]int
	if !promptlib.ExtractJSON(text, &parsed) {
		return allResultsToAllSections(titles, len(results)), nil
	}
	return parsed, nil
}

func allResultsToAllSections(titles []string, resultCount int) map[string][]int {
	all := make([]int, resultCount)
	for i := range all {
		all[i] = i
	}
	out := make(map[string][]int, len(titles))
	for _, title := range titles {
		indices := make([]int, len(all))
		copy(indices, all)
		out[title] = indices
	}
	return out
}

// referencesForSection filters references to those whose URL appears among
// a section's assigned result sources (spec §4.7.3).
func referencesForSection(refs []core.Reference, sectionResults []core.SearchResult) []core.Reference {
	urls := make(map[string]bool)
	for _, r := range sectionResults {
		for _, s := range r.Result.Sources {
			urls[s.URL] = true
		}
	}

	out := make([]core.Reference, 0, len(refs))
	for _, ref := range refs {
		if urls[ref.URL] {
			out = append(out, ref)
		}
	}
	return out
}

func formatReferencesBlock(refs []core.Reference) string {
	out := ""
	for _, r := range refs {
		out += fmt.Sprintf("[%d] %s — %s\n", r.ID, r.Title, r.URL)
	}
	return out
}
