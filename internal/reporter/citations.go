package reporter

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"

	"deepresearch/internal/core"
)

var citationRE = regexp.MustCompile(`\[(\d+)\]`)

// AnalyzeCitations scans body for [N] citation markers, counts occurrences,
// and partitions references into cited (with CitationCount) and uncited
// (spec §4.9). Cited refs are sorted by citation count descending.
func AnalyzeCitations(body string, references []core.Reference) (cited []core.CitedReference, uncited []core.Reference, statsOut core.CitationStats) {
	counts := make(map[int]int)
	for _, m := range citationRE.FindAllStringSubmatch(body, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		counts[id]++
	}

	refByID := make(map[int]core.Reference, len(references))
	for _, r := range references {
		refByID[r.ID] = r
	}

	for _, r := range references {
		if count, ok := counts[r.ID]; ok && count > 0 {
			cited = append(cited, core.CitedReference{Reference: r, CitationCount: count})
		} else {
			uncited = append(uncited, r)
		}
	}
	sort.SliceStable(cited, func(i, j int) bool { return cited[i].CitationCount > cited[j].CitationCount })

	var invalid []int
	total := 0
	countValues := make([]float64, 0, len(counts))
	for id, count := range counts {
		total += count
		countValues = append(countValues, float64(count))
		if _, ok := refByID[id]; !ok {
			invalid = append(invalid, id)
		}
	}
	sort.Ints(invalid)

	mostCited := topNCitations(counts, 5)

	avg := 0.0
	if len(counts) > 0 {
		if mean, err := stats.Mean(countValues); err == nil {
			avg = mean
		}
	}

	statsOut = core.CitationStats{
		TotalCitations:        total,
		UniqueCitations:       len(counts),
		InvalidCitations:      invalid,
		MostCited:             mostCited,
		AvgCitationsPerSource: avg,
		CitationDistribution:  counts,
	}
	return cited, uncited, statsOut
}

func topNCitations(counts map[int]int, n int) []core.CitationCount {
	all := make([]core.CitationCount, 0, len(counts))
	for id, count := range counts {
		all = append(all, core.CitationCount{ID: id, Count: count})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
