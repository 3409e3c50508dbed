// Package reporter implements the final-assembly stage from spec §4.9:
// reference extraction (no dedup, by design), citation analysis via
// montanaflynn/stats, categorized reference formatting with inline figure
// embedding, and report-bundle persistence. Grounded on the teacher's
// synthesis.go extractCitations/compileReport shape and obsidian/writer.go's
// directory-bundle-persistence technique (folded in here since the vault
// system itself is out of scope).
package reporter

import (
	"sort"

	"deepresearch/internal/core"
)

// ExtractReferences iterates results → sources → Reference, assigning
// positive integer IDs in insertion order, then sorts by relevance
// descending. Duplicate URLs across sources are kept as distinct entries —
// intentional, since deduping would break citation traceability (spec
// §4.9).
func ExtractReferences(results []core.SearchResult) []core.Reference {
	refs := make([]core.Reference, 0)
	nextID := 1
	for _, r := range results {
		for _, s := range r.Result.Sources {
			refs = append(refs, core.Reference{
				ID:        nextID,
				Title:     s.Title,
				URL:       s.URL,
				Query:     r.Query,
				Relevance: s.Relevance,
			})
			nextID++
		}
	}

	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Relevance > refs[j].Relevance })
	return refs
}
