package searchexec

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"deepresearch/internal/core"
)

// persistedResult is the JSON subset written to disk — no raw HTML, no
// FullContent, per spec §4.3: this is the reversible-compression checkpoint,
// downstream stages read the LLM-condensed synthesis, never raw pages.
type persistedResult struct {
	Query     string        `json:"query"`
	Goal      string        `json:"goal"`
	Priority  int           `json:"priority"`
	Summary   string        `json:"summary"`
	Processed string        `json:"processed"`
	Sources   []core.Source `json:"sources"`
}

// SaveResearchData writes the search results for one trace to
// {logDir}/research_data/{traceId8}_{timestamp}/search_results.json.
func (e *Executor) SaveResearchData(ctx context.Context, traceID8 string, results []core.SearchResult) (string, error) {
	dir := filepath.Join(e.cfg.LogDir, "research_data", fmt.Sprintf("%s_%d", traceID8, time.Now().Unix()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("searchexec: creating research_data dir: %w", err)
	}

	subset := make([]persistedResult, len(results))
	for i, r := range results {
		subset[i] = persistedResult{
			Query:     r.Query,
			Goal:      r.Goal,
			Priority:  r.Priority,
			Summary:   r.Result.Summary,
			Processed: r.Result.Processed,
			Sources:   r.Result.Sources,
		}
	}

	payload, err := json.MarshalIndent(subset, "", "  ")
	if err != nil {
		return "", fmt.Errorf("searchexec: marshalling search results: %w", err)
	}

	path := filepath.Join(dir, "search_results.json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("searchexec: writing search results: %w", err)
	}
	return path, nil
}
