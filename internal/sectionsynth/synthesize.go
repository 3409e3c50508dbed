package sectionsynth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"deepresearch/internal/core"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/promptlib"
)

// EvidenceItem is one claim→source mapping with a confidence level (spec
// §4.7.3).
type EvidenceItem struct {
	Claim      string
	SourceIDs  []int
	Confidence string // low | medium | high
}

// SectionSynthesis is the output of synthesizing one section.
type SectionSynthesis struct {
	Section       Section
	Synthesis     string
	EvidenceIndex []EvidenceItem
	KeyDataPoints []string
}

const (
	perResultCharBudget = 8000
	totalCharBudget     = 30000
)

// truncateSectionResults applies the per-result/total char budget local to
// section synthesis — distinct from analyzer's budgets, since each section
// only sees its own subset of results (spec §4.7.3).
func truncateSectionResults(results []core.SearchResult) string {
	var b strings.Builder
	total := 0
	for i, r := range results {
		text := r.Result.Summary
		if r.Result.Processed != "" {
			text = r.Result.Processed
		}
		if r.Result.FullContent != "" {
			text = r.Result.FullContent
		}
		if len(text) > perResultCharBudget {
			text = text[:perResultCharBudget] + "... [truncated]"
		}
		entry := fmt.Sprintf("Result %d: %s\n", i+1, text)
		if total+len(entry) > totalCharBudget {
			break
		}
		b.WriteString(entry)
		total += len(entry)
	}
	return b.String()
}

// SynthesizeSection runs one LLM call for a single section (spec §4.7.3).
func SynthesizeSection(ctx context.Context, client Client, section Section, sectionResults []core.SearchResult, plan string, references []core.Reference, language string) (SectionSynthesis, error) {
	truncated := truncateSectionResults(sectionResults)
	filteredRefs := referencesForSection(references, sectionResults)
	refsBlock := formatReferencesBlock(filteredRefs)

	prompt := promptlib.SynthesizeSectionPrompt(section.Title, section.Description, truncated, plan, refsBlock, language)
	text, _, err := client.Generate(ctx, []llmprovider.Message{{Role: "user", Content: prompt}}, llmprovider.Options{Temperature: 0.4})
	if err != nil {
		return SectionSynthesis{}, err
	}

	var parsed struct {
		Synthesis     string `json:"synthesis"`
		EvidenceIndex []struct {
			Claim      string `json:"claim"`
			SourceIDs  []int  `json:"sourceIds"`
			Confidence string `json:"confidence"`
		} `json:"evidenceIndex"`
		KeyDataPoints []string `json:"keyDataPoints"`
	}
	promptlib.ExtractJSON(text, &parsed)

	evidence := make([]EvidenceItem, len(parsed.EvidenceIndex))
	for i, e := range parsed.EvidenceIndex {
		evidence[i] = EvidenceItem{Claim: e.Claim, SourceIDs: e.SourceIDs, Confidence: e.Confidence}
	}

	synthesis := parsed.Synthesis
	if synthesis == "" {
		synthesis = text
	}

	return SectionSynthesis{
		Section:       section,
		Synthesis:     synthesis,
		EvidenceIndex: evidence,
		KeyDataPoints: parsed.KeyDataPoints,
	}, nil
}

// SynthesizeAllSections runs SynthesizeSection concurrently across every
// section, one goroutine each, via errgroup (spec §4.7: "executed
// concurrently across sections").
func SynthesizeAllSections(ctx context.Context, client Client, sections []Section, classification map[string][]int, results []core.SearchResult, plan string, references []core.Reference, language string) ([]SectionSynthesis, error) {
	out := make([]SectionSynthesis, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	for i, section := range sections {
		i, section := i, section
		g.Go(func() error {
			indices := classification[section.Title]
			sectionResults := make([]core.SearchResult, 0, len(indices))
			for _, idx := range indices {
				if idx >= 0 && idx < len(results) {
					sectionResults = append(sectionResults, results[idx])
				}
			}

			synthesis, err := SynthesizeSection(gctx, client, section, sectionResults, plan, references, language)
			if err != nil {
				return err
			}
			out[i] = synthesis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// BuildHierarchicalContext assembles the structured context block that
// replaces raw summarisation in the final-report prompt (spec §4.7): for
// each section, a Detailed Findings paragraph, an Evidence Index list, and
// a Key Data Points bulleted list.
func BuildHierarchicalContext(syntheses []SectionSynthesis) string {
	var b strings.Builder
	for _, s := range syntheses {
		fmt.Fprintf(&b, "## %s\n\n### Detailed Findings\n%s\n\n", s.Section.Title, s.Synthesis)

		b.WriteString("### Evidence Index\n")
		for _, e := range s.EvidenceIndex {
			fmt.Fprintf(&b, "- %s (sources: %v, confidence: %s)\n", e.Claim, e.SourceIDs, e.Confidence)
		}
		b.WriteString("\n### Key Data Points\n")
		for _, kdp := range s.KeyDataPoints {
			fmt.Fprintf(&b, "- %s\n", kdp)
		}
		b.WriteString("\n")
	}
	return b.String()
}
