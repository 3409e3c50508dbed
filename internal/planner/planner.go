// Package planner implements the five pure, LLM-driven planning operations
// from spec §4.5, grounded on the teacher's planning/planner.go
// (CreatePlan's "discover, then build" shape) and agents/search.go's
// generateQueries/parseStringArray lenient-parsing discipline, generalized
// from a perspective-discovery DAG builder into the direct plan/domain/SERP
// pipeline the spec specifies.
package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"deepresearch/internal/core"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/promptlib"
)

// Client is the narrow LLM surface the planner needs.
type Client interface {
	Generate(ctx context.Context, messages []llmprovider.Message, opts llmprovider.Options) (string, llmprovider.TokenInfo, error)
}

// Planner holds the LLM client used for every planning call.
type Planner struct {
	client Client
}

// New builds a Planner bound to the given client.
func New(client Client) *Planner {
	return &Planner{client: client}
}

func (p *Planner) ask(ctx context.Context, prompt string) (string, error) {
	text, _, err := p.client.Generate(ctx, []llmprovider.Message{{Role: "user", Content: prompt}}, llmprovider.Options{Temperature: 0.3})
	return text, err
}

// WriteReportPlan produces a structured Markdown plan with "##" section
// headings (spec §4.5.1).
func (p *Planner) WriteReportPlan(ctx context.Context, query string) (string, error) {
	return p.ask(ctx, promptlib.ReportPlanPrompt(query))
}

// IdentifyResearchDomains returns 2-5 weighted research domains. On parse
// failure it returns an empty slice so the pipeline degrades gracefully
// rather than failing the run (spec §4.5.2).
func (p *Planner) IdentifyResearchDomains(ctx context.Context, query, plan string) ([]core.Domain, error) {
	text, err := p.ask(ctx, promptlib.ResearchDomainsPrompt(query, plan))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Domains []struct {
			Name         string   `json:"name"`
			Weight       float64  `json:"weight"`
			SearchAngles []string `json:"searchAngles"`
		} `json:"domains"`
	}
	if !promptlib.ExtractJSON(text, &parsed) {
		return nil, nil
	}

	domains := make([]core.Domain, 0, len(parsed.Domains))
	for _, d := range parsed.Domains {
		domains = append(domains, core.Domain{Name: d.Name, Weight: d.Weight, SearchAngles: d.SearchAngles})
	}
	return domains, nil
}

// GenerateSerpQueries produces up to `budget` search tasks. If the LLM
// exceeds budget, the top `budget` by descending priority are kept
// deterministically (spec §4.5.3).
func (p *Planner) GenerateSerpQueries(ctx context.Context, query, plan string, domains []core.Domain, budget int) ([]core.SearchTask, error) {
	domainsBlock := ""
	if len(domains) > 0 {
		names := make([]string, len(domains))
		weights := make([]float64, len(domains))
		for i, d := range domains {
			names[i] = d.Name
			weights[i] = d.Weight
		}
		domainsBlock = promptlib.DomainsBlock(names, weights)
	}

	text, err := p.ask(ctx, promptlib.SerpQueriesPrompt(query, plan, domainsBlock, budget))
	if err != nil {
		return nil, err
	}

	queries := parseQueryList(text)
	tasks := make([]core.SearchTask, len(queries))
	for i, q := range queries {
		tasks[i] = core.SearchTask{Query: q, ResearchGoal: query, Priority: len(queries) - i}
	}
	return capByPriority(tasks, budget), nil
}

// GenerateFollowupQueries returns additional search tasks excluding
// previously-executed queries, respecting remainingBudget. Returns an empty
// slice with no LLM call when remainingBudget <= 0 (spec §4.5.4).
func (p *Planner) GenerateFollowupQueries(ctx context.Context, plan, existingResultsSummary string, executedQueries []string, remainingBudget int) ([]core.SearchTask, error) {
	prompt := promptlib.FollowupQueriesPrompt(plan, existingResultsSummary, executedQueries, remainingBudget)
	if prompt == "" {
		return nil, nil
	}

	text, err := p.ask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	queries := parseQueryList(text)
	tasks := make([]core.SearchTask, len(queries))
	for i, q := range queries {
		tasks[i] = core.SearchTask{Query: q, Priority: len(queries) - i}
	}
	return capByPriority(tasks, remainingBudget), nil
}

// ReviewResearchCompleteness assesses whether research is sufficient (spec
// §4.5.5). On JSON parse failure it falls back to scanning the first 10
// characters of the raw response for the token "YES".
func (p *Planner) ReviewResearchCompleteness(ctx context.Context, plan, resultsSummary string, iteration int, sectionCoverage map[string]core.SectionCoverage) (bool, core.GapReport, error) {
	coverageBlock := formatSectionCoverage(sectionCoverage)
	text, err := p.ask(ctx, promptlib.CompletenessReviewPrompt(plan, resultsSummary, iteration, coverageBlock))
	if err != nil {
		return false, core.GapReport{}, err
	}

	var parsed struct {
		IsSufficient    bool   `json:"isSufficient"`
		OverallCoverage int    `json:"overallCoverage"`
		Sections        []core.SectionGap `json:"sections"`
		PriorityGaps    []string           `json:"priorityGaps"`
	}
	if !promptlib.ExtractJSON(text, &parsed) {
		return promptlib.FallbackIsSufficient(text), core.GapReport{}, nil
	}

	report := core.GapReport{
		IsSufficient:    parsed.IsSufficient,
		OverallCoverage: parsed.OverallCoverage,
		Sections:        parsed.Sections,
		PriorityGaps:    parsed.PriorityGaps,
	}
	return report.IsSufficient, report, nil
}

func formatSectionCoverage(coverage map[string]core.SectionCoverage) string {
	if len(coverage) == 0 {
		return "(no prior coverage recorded)"
	}
	names := make([]string, 0, len(coverage))
	for name := range coverage {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		c := coverage[name]
		fmt.Fprintf(&b, "- %s: %s (%s)\n", name, c.Status, c.Notes)
	}
	return b.String()
}

// parseQueryList extracts a JSON string array from LLM output and returns
// nil when no array can be parsed — it mirrors the teacher's
// parseStringArray contract but has no goal-as-query fallback, since that
// decision belongs to the caller here.
func parseQueryList(text string) []string {
	var arr []string
	if promptlib.ExtractJSON(text, &arr) {
		return arr
	}
	return nil
}

// capByPriority deterministically keeps the top `budget` tasks by
// descending priority when the LLM returned more than asked for.
func capByPriority(tasks []core.SearchTask, budget int) []core.SearchTask {
	if budget <= 0 || len(tasks) <= budget {
		return tasks
	}
	sorted := make([]core.SearchTask, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	return sorted[:budget]
}
