package reporter

import (
	"fmt"
	"strconv"
	"strings"

	"deepresearch/internal/core"
)

// FormatReportWithCategorizedReferences appends labelled cited/uncited
// reference sections, a citation-statistics block, a mode summary, and
// inline-embeds each figure at its textual target within the body — or, on
// no match, accumulates it into an overflow block appended after the body
// (spec §4.9).
func FormatReportWithCategorizedReferences(body string, cited []core.CitedReference, uncited []core.Reference, mode core.Mode, hasCritical bool, statsOut core.CitationStats, computational *core.ComputationResult) string {
	result := body
	var overflow []core.Figure

	if computational != nil {
		for i, fig := range computational.Figures {
			embedded, ok := embedFigure(result, fig, i+1)
			if ok {
				result = embedded
			} else {
				overflow = append(overflow, fig)
			}
		}
	}

	var b strings.Builder
	b.WriteString(result)
	b.WriteString("\n\n")

	if len(overflow) > 0 {
		b.WriteString("## Additional Figures\n\n")
		for i, fig := range overflow {
			fmt.Fprintf(&b, "**Figure: %s**\n\n![%s](data:image/png;base64,%s)\n\n", fig.Spec.Title, fig.Spec.Title, fig.PNGB64)
			_ = i
		}
	}

	b.WriteString("## Cited References\n\n")
	for _, c := range cited {
		fmt.Fprintf(&b, "[%d] %s — %s (cited %d times)\n", c.ID, c.Title, c.URL, c.CitationCount)
	}

	if len(uncited) > 0 {
		b.WriteString("\n## Additional Sources (Not Directly Cited)\n\n")
		for _, u := range uncited {
			fmt.Fprintf(&b, "[%d] %s — %s\n", u.ID, u.Title, u.URL)
		}
	}

	b.WriteString("\n## Citation Statistics\n\n")
	fmt.Fprintf(&b, "- Total citations: %d\n", statsOut.TotalCitations)
	fmt.Fprintf(&b, "- Unique citations: %d\n", statsOut.UniqueCitations)
	fmt.Fprintf(&b, "- Average citations per source: %.2f\n", statsOut.AvgCitationsPerSource)
	if len(statsOut.InvalidCitations) > 0 {
		fmt.Fprintf(&b, "- Invalid citation ids referenced in body but absent from references: %v\n", statsOut.InvalidCitations)
	}

	b.WriteString("\n## Mode Summary\n\n")
	fmt.Fprintf(&b, "- Mode: %s\n", mode)
	fmt.Fprintf(&b, "- Critical analysis included: %t\n", hasCritical)

	return b.String()
}

// embedFigure searches the body for the figure's textual target (the
// targetSection heading, else a "Figure N" reference where n is the
// figure's 1-based position) and inserts the figure markdown at the next
// paragraph boundary. Returns ok=false when no match is found.
func embedFigure(body string, fig core.Figure, n int) (string, bool) {
	markdown := fmt.Sprintf("\n\n![%s](data:image/png;base64,%s)\n\n", fig.Spec.Title, fig.PNGB64)

	if fig.Spec.TargetSection != "" {
		heading := "## " + fig.Spec.TargetSection
		if idx := strings.Index(body, heading); idx >= 0 {
			insertAt := nextParagraphBoundary(body, idx+len(heading))
			return body[:insertAt] + markdown + body[insertAt:], true
		}
	}

	marker := "Figure " + strconv.Itoa(n)
	if idx := strings.Index(body, marker); idx >= 0 {
		insertAt := nextParagraphBoundary(body, idx+len(marker))
		return body[:insertAt] + markdown + body[insertAt:], true
	}
	return body, false
}

func nextParagraphBoundary(body string, from int) int {
	idx := strings.Index(body[from:], "\n\n")
	if idx < 0 {
		return len(body)
	}
	return from + idx + 2
}
