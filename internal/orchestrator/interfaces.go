package orchestrator

import (
	"context"

	"deepresearch/internal/core"
	"deepresearch/internal/llmprovider"
)

// LLMClient is the narrow surface the orchestrator needs directly (for
// final-report writing and section classification/synthesis, which take a
// raw client rather than a stage-package wrapper). Satisfied by
// *llmprovider.MultiClient.
type LLMClient interface {
	Generate(ctx context.Context, messages []llmprovider.Message, opts llmprovider.Options) (string, llmprovider.TokenInfo, error)
}

// Planner is the subset of *planner.Planner the orchestrator drives.
type Planner interface {
	WriteReportPlan(ctx context.Context, query string) (string, error)
	IdentifyResearchDomains(ctx context.Context, query, plan string) ([]core.Domain, error)
	GenerateSerpQueries(ctx context.Context, query, plan string, domains []core.Domain, budget int) ([]core.SearchTask, error)
	GenerateFollowupQueries(ctx context.Context, plan, existingResultsSummary string, executedQueries []string, remainingBudget int) ([]core.SearchTask, error)
	ReviewResearchCompleteness(ctx context.Context, plan, resultsSummary string, iteration int, sectionCoverage map[string]core.SectionCoverage) (bool, core.GapReport, error)
}

// Analyzer is the subset of *analyzer.Analyzer the orchestrator drives.
type Analyzer interface {
	SummarizeSearchResults(results []core.SearchResult) string
	IntermediateSynthesis(ctx context.Context, plan string, waveResults []core.SearchResult, previousSynthesis string) (core.SynthesisRecord, error)
	CriticalAnalysisStage(ctx context.Context, results []core.SearchResult, plan, synthesis string) (string, error)
}

// SearchExecutor is the subset of *searchexec.Executor the orchestrator
// drives.
type SearchExecutor interface {
	ExecuteSearchTasks(ctx context.Context, tasks []core.SearchTask) []core.SearchResult
	EnrichTopURLs(ctx context.Context, results []core.SearchResult)
	SaveResearchData(ctx context.Context, traceID8 string, results []core.SearchResult) (string, error)
}

// ChartEngine is the subset of *chartplan.Engine the orchestrator drives.
type ChartEngine interface {
	SandboxAvailable() bool
	PlanReportCharts(ctx context.Context, resultsSummary, plan, synthesis string) []core.ChartSpec
	ExecuteChartPlan(ctx context.Context, specs []core.ChartSpec, results []core.SearchResult, synthesis string) (*core.ComputationResult, error)
}
