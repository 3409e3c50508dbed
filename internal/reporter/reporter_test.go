package reporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deepresearch/internal/core"
)

func sampleResults() []core.SearchResult {
	return []core.SearchResult{
		{
			Query: "q1",
			Result: core.SearchResultBody{
				Sources: []core.Source{
					{URL: "https://a.example", Title: "A", Relevance: 0.4},
					{URL: "https://b.example", Title: "B", Relevance: 0.9},
				},
			},
		},
		{
			Query: "q2",
			Result: core.SearchResultBody{
				Sources: []core.Source{
					{URL: "https://a.example", Title: "A dup", Relevance: 0.7},
				},
			},
		},
	}
}

func TestExtractReferencesKeepsDuplicateURLsAndSortsByRelevance(t *testing.T) {
	refs := ExtractReferences(sampleResults())
	if len(refs) != 3 {
		t.Fatalf("expected 3 references (no dedup), got %d", len(refs))
	}
	for i := 1; i < len(refs); i++ {
		if refs[i-1].Relevance < refs[i].Relevance {
			t.Fatalf("expected descending relevance order, got %+v", refs)
		}
	}
	// IDs were assigned before sorting, in insertion order: a.example(1),
	// b.example(2), a dup(3). After sorting by relevance descending the
	// order becomes b(0.9, id2), a-dup(0.7, id3), a(0.4, id1).
	wantIDs := []int{2, 3, 1}
	for i, id := range wantIDs {
		if refs[i].ID != id {
			t.Errorf("position %d: expected id %d, got %d", i, id, refs[i].ID)
		}
	}
}

func TestAnalyzeCitationsCountsAndPartitions(t *testing.T) {
	refs := []core.Reference{
		{ID: 1, Title: "One", URL: "https://one.example"},
		{ID: 2, Title: "Two", URL: "https://two.example"},
		{ID: 3, Title: "Three", URL: "https://three.example"},
	}
	body := "Claim A [1]. Claim B [1] and [2]. Invalid [9]."

	cited, uncited, stats := AnalyzeCitations(body, refs)

	if len(cited) != 2 {
		t.Fatalf("expected 2 cited references, got %d", len(cited))
	}
	if cited[0].ID != 1 || cited[0].CitationCount != 2 {
		t.Errorf("expected ref 1 first with count 2, got %+v", cited[0])
	}
	if len(uncited) != 1 || uncited[0].ID != 3 {
		t.Errorf("expected ref 3 uncited, got %+v", uncited)
	}
	if stats.TotalCitations != 4 {
		t.Errorf("expected 4 total citations, got %d", stats.TotalCitations)
	}
	if stats.UniqueCitations != 3 {
		t.Errorf("expected 3 unique citation ids (1,2,9), got %d", stats.UniqueCitations)
	}
	if len(stats.InvalidCitations) != 1 || stats.InvalidCitations[0] != 9 {
		t.Errorf("expected invalid citation [9], got %v", stats.InvalidCitations)
	}
}

func TestAnalyzeCitationsNoMarkersYieldsAllUncited(t *testing.T) {
	refs := []core.Reference{{ID: 1, Title: "One", URL: "https://one.example"}}
	cited, uncited, stats := AnalyzeCitations("no citations here", refs)
	if len(cited) != 0 {
		t.Errorf("expected zero cited, got %d", len(cited))
	}
	if len(uncited) != 1 {
		t.Errorf("expected 1 uncited, got %d", len(uncited))
	}
	if stats.TotalCitations != 0 || stats.AvgCitationsPerSource != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestAnalyzeCitationsOnlyInvalidMarkersStillYieldsAvg(t *testing.T) {
	refs := []core.Reference{{ID: 1, Title: "One", URL: "https://one.example"}}
	body := "Claim referencing a nonexistent source [99] and again [99]."

	cited, uncited, stats := AnalyzeCitations(body, refs)

	if len(cited) != 0 {
		t.Errorf("expected zero cited references when only an invalid id is marked, got %+v", cited)
	}
	if len(uncited) != 1 {
		t.Errorf("expected the one real reference to be uncited, got %+v", uncited)
	}
	if stats.TotalCitations != 2 {
		t.Errorf("expected 2 total citation markers, got %d", stats.TotalCitations)
	}
	if stats.AvgCitationsPerSource != 2.0 {
		t.Errorf("expected avg citations per source computed over the invalid id's count (2), got %v", stats.AvgCitationsPerSource)
	}
}

func TestTopNCitationsBreaksTiesByAscendingID(t *testing.T) {
	counts := map[int]int{5: 3, 2: 3, 9: 3, 1: 1}
	top := topNCitations(counts, 10)

	wantOrder := []int{2, 5, 9, 1}
	if len(top) != len(wantOrder) {
		t.Fatalf("expected %d entries, got %d: %+v", len(wantOrder), len(top), top)
	}
	// The three tied-at-3 ids (2, 5, 9) must come first sorted ascending by
	// id, then the id with count 1.
	gotTiedOrder := []int{top[0].ID, top[1].ID, top[2].ID}
	wantTiedOrder := []int{2, 5, 9}
	for i := range wantTiedOrder {
		if gotTiedOrder[i] != wantTiedOrder[i] {
			t.Errorf("expected deterministic ascending-id tie-break %v, got %v", wantTiedOrder, gotTiedOrder)
		}
	}
	if top[3].ID != 1 {
		t.Errorf("expected lowest-count id last, got %+v", top)
	}
}

func TestFormatReportWithCategorizedReferencesIncludesAllSections(t *testing.T) {
	cited := []core.CitedReference{
		{Reference: core.Reference{ID: 1, Title: "One", URL: "https://one.example"}, CitationCount: 2},
	}
	uncited := []core.Reference{
		{ID: 2, Title: "Two", URL: "https://two.example"},
	}
	stats := core.CitationStats{TotalCitations: 2, UniqueCitations: 1, AvgCitationsPerSource: 2.0}

	out := FormatReportWithCategorizedReferences("# Report\n\nSome body about Figure 1 here.\n\n", cited, uncited, core.ModeDeepResearch, true, stats, nil)

	for _, want := range []string{"## Cited References", "[1] One", "## Additional Sources (Not Directly Cited)", "[2] Two", "## Citation Statistics", "## Mode Summary", "deepResearch"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatReportEmbedsFigureAtTextualTarget(t *testing.T) {
	body := "# Report\n\nIntro paragraph.\n\nSee Figure 1 for details.\n\nConclusion.\n"
	comp := &core.ComputationResult{
		Figures: []core.Figure{
			{Spec: core.ChartSpec{Title: "Revenue Chart"}, PNGB64: "aGVsbG8="},
		},
	}
	out := FormatReportWithCategorizedReferences(body, nil, nil, core.ModeDeepResearch, false, core.CitationStats{}, comp)
	if !strings.Contains(out, "data:image/png;base64,aGVsbG8=") {
		t.Errorf("expected figure embedded inline, got:\n%s", out)
	}
	if strings.Contains(out, "## Additional Figures") {
		t.Errorf("figure matched a target, should not overflow: %s", out)
	}
}

func TestFormatReportOverflowsUnmatchedFigure(t *testing.T) {
	body := "# Report\n\nNo figure references here.\n"
	comp := &core.ComputationResult{
		Figures: []core.Figure{
			{Spec: core.ChartSpec{Title: "Orphan Chart"}, PNGB64: "aGVsbG8="},
		},
	}
	out := FormatReportWithCategorizedReferences(body, nil, nil, core.ModeDeepResearch, false, core.CitationStats{}, comp)
	if !strings.Contains(out, "## Additional Figures") {
		t.Errorf("expected overflow block for unmatched figure, got:\n%s", out)
	}
	if !strings.Contains(out, "Orphan Chart") {
		t.Errorf("expected overflow figure title present, got:\n%s", out)
	}
}

func TestSaveReportBundleWritesReportFiguresAndMetadata(t *testing.T) {
	dir := t.TempDir()
	req := core.NewRequest("test query", core.ModeDeepResearch)

	body := "# Report\n\n![Chart A](data:image/png;base64,aGVsbG8=)\n\nMore text.\n"
	stats := core.CitationStats{CitationDistribution: map[int]int{1: 3}}

	bundleDir, err := SaveReportBundle(dir, req, body, "test-model", 0, 100, stats, []string{"plan", "search"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reportBytes, err := os.ReadFile(filepath.Join(bundleDir, "report.md"))
	if err != nil {
		t.Fatalf("expected report.md to exist: %v", err)
	}
	if strings.Contains(string(reportBytes), "base64") {
		t.Errorf("expected base64 image replaced by relative path, got:\n%s", reportBytes)
	}
	if !strings.Contains(string(reportBytes), "figures/figure_1.png") {
		t.Errorf("expected relative figure path in report.md, got:\n%s", reportBytes)
	}

	figureBytes, err := os.ReadFile(filepath.Join(bundleDir, "figures", "figure_1.png"))
	if err != nil {
		t.Fatalf("expected figure file to exist: %v", err)
	}
	if string(figureBytes) != "hello" {
		t.Errorf("expected decoded figure content %q, got %q", "hello", figureBytes)
	}

	metaBytes, err := os.ReadFile(filepath.Join(bundleDir, "metadata.json"))
	if err != nil {
		t.Fatalf("expected metadata.json to exist: %v", err)
	}
	if !strings.Contains(string(metaBytes), "test query") {
		t.Errorf("expected query in metadata, got:\n%s", metaBytes)
	}
}
