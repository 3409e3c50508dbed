// Package analyzer implements the bounded-input summarizer and the
// synthesis/critique LLM stages from spec §4.6, grounded on the teacher's
// context/manager.go multi-scale summary budget discipline (truncate,
// never drop) generalized into the exact two-tier truncation the spec
// specifies, and agents/analysis.go's phased-critique shape.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"deepresearch/internal/core"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/promptlib"
)

// Client is the narrow LLM surface the analyzer needs.
type Client interface {
	Generate(ctx context.Context, messages []llmprovider.Message, opts llmprovider.Options) (string, llmprovider.TokenInfo, error)
}

// Analyzer holds the LLM client and the truncation budget.
type Analyzer struct {
	client      Client
	maxPerResult int
	maxTotal     int
}

// New builds an Analyzer with the spec's default budgets (8000/200000).
func New(client Client) *Analyzer {
	return &Analyzer{client: client, maxPerResult: 8000, maxTotal: 200000}
}

// WithBudgets overrides the default per-result / total truncation budgets.
func (a *Analyzer) WithBudgets(maxPerResult, maxTotal int) *Analyzer {
	a.maxPerResult = maxPerResult
	a.maxTotal = maxTotal
	return a
}

// SummarizeSearchResults serialises results in order, preferring
// fullContent over processed over summary, truncating each per
// maxPerResult and the whole output per maxTotal (spec §4.6).
func (a *Analyzer) SummarizeSearchResults(results []core.SearchResult) string {
	var b strings.Builder
	total := 0
	truncatedCount := 0

	for i, r := range results {
		text := bestText(r.Result)
		if len(text) > a.maxPerResult {
			text = text[:a.maxPerResult] + "... [truncated]"
		}

		entry := fmt.Sprintf("Result %d (query: %q):\n%s\n\n", i+1, r.Query, text)
		if total+len(entry) > a.maxTotal {
			truncatedCount = len(results) - i
			break
		}
		b.WriteString(entry)
		total += len(entry)
	}

	if truncatedCount > 0 {
		fmt.Fprintf(&b, "... [%d more results truncated]\n", truncatedCount)
	}
	return b.String()
}

func bestText(body core.SearchResultBody) string {
	if body.FullContent != "" {
		return body.FullContent
	}
	if body.Processed != "" {
		return body.Processed
	}
	return body.Summary
}

// IntermediateSynthesis integrates new wave findings with the prior
// synthesis via one LLM call (spec §4.6). Missing JSON keys default to
// empty/zero values rather than failing the call.
func (a *Analyzer) IntermediateSynthesis(ctx context.Context, plan string, waveResults []core.SearchResult, previousSynthesis string) (core.SynthesisRecord, error) {
	waveSummary := a.SummarizeSearchResults(waveResults)
	prompt := promptlib.IntermediateSynthesisPrompt(plan, waveSummary, previousSynthesis)

	text, _, err := a.client.Generate(ctx, []llmprovider.Message{{Role: "user", Content: prompt}}, llmprovider.Options{Temperature: 0.3})
	if err != nil {
		return core.SynthesisRecord{}, err
	}

	var parsed struct {
		Synthesis        string                            `json:"synthesis"`
		SectionCoverage  map[string]core.SectionCoverage `json:"sectionCoverage"`
		KnowledgeGaps    []string                          `json:"knowledgeGaps"`
		CrossDomainLinks []string                          `json:"crossDomainLinks"`
	}
	promptlib.ExtractJSON(text, &parsed) // best-effort; zero values on failure

	return core.SynthesisRecord{
		Synthesis:        parsed.Synthesis,
		SectionCoverage:  parsed.SectionCoverage,
		KnowledgeGaps:    parsed.KnowledgeGaps,
		CrossDomainLinks: parsed.CrossDomainLinks,
	}, nil
}

// CriticalAnalysisStage runs the unconditional multi-perspective critique
// (spec §4.6). It prefers accumulated synthesis over raw results when
// available, to stay within the token budget.
func (a *Analyzer) CriticalAnalysisStage(ctx context.Context, results []core.SearchResult, plan, synthesis string) (string, error) {
	resultsSummary := ""
	if synthesis == "" {
		resultsSummary = a.SummarizeSearchResults(results)
	}
	prompt := promptlib.CriticalAnalysisPrompt(resultsSummary, plan, synthesis)

	text, _, err := a.client.Generate(ctx, []llmprovider.Message{{Role: "user", Content: prompt}}, llmprovider.Options{Temperature: 0.4})
	if err != nil {
		return "", err
	}
	return text, nil
}

// SynthesisHistoryPreview builds a short preview string suitable for
// appending to response.metadata.synthesisHistory.
func SynthesisHistoryPreview(record core.SynthesisRecord) string {
	const maxLen = 280
	s := record.Synthesis
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
