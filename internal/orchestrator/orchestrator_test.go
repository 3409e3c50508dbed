package orchestrator

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"deepresearch/internal/config"
	"deepresearch/internal/core"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/streaming"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Generate(ctx context.Context, messages []llmprovider.Message, opts llmprovider.Options) (string, llmprovider.TokenInfo, error) {
	f.calls++
	if f.err != nil {
		return "", llmprovider.TokenInfo{}, f.err
	}
	return f.response, llmprovider.TokenInfo{}, nil
}

type fakePlanner struct {
	plan             string
	domains          []core.Domain
	tasks            []core.SearchTask
	sufficient       bool
	reviewErr        error
	writeErr         error
	domainsErr       error
	generateErr      error
	followupCalls    int
	serpCalls        int
	reviewCalls      int
}

func (p *fakePlanner) WriteReportPlan(ctx context.Context, query string) (string, error) {
	return p.plan, p.writeErr
}

func (p *fakePlanner) IdentifyResearchDomains(ctx context.Context, query, plan string) ([]core.Domain, error) {
	return p.domains, p.domainsErr
}

func (p *fakePlanner) GenerateSerpQueries(ctx context.Context, query, plan string, domains []core.Domain, budget int) ([]core.SearchTask, error) {
	p.serpCalls++
	return p.tasks, p.generateErr
}

func (p *fakePlanner) GenerateFollowupQueries(ctx context.Context, plan, existingResultsSummary string, executedQueries []string, remainingBudget int) ([]core.SearchTask, error) {
	p.followupCalls++
	return nil, nil // no more queries after the first wave, by default
}

func (p *fakePlanner) ReviewResearchCompleteness(ctx context.Context, plan, resultsSummary string, iteration int, sectionCoverage map[string]core.SectionCoverage) (bool, core.GapReport, error) {
	p.reviewCalls++
	return p.sufficient, core.GapReport{}, p.reviewErr
}

type fakeAnalyzer struct {
	synthesis core.SynthesisRecord
	critical  string
}

func (a *fakeAnalyzer) SummarizeSearchResults(results []core.SearchResult) string { return "summary" }

func (a *fakeAnalyzer) IntermediateSynthesis(ctx context.Context, plan string, waveResults []core.SearchResult, previousSynthesis string) (core.SynthesisRecord, error) {
	return a.synthesis, nil
}

func (a *fakeAnalyzer) CriticalAnalysisStage(ctx context.Context, results []core.SearchResult, plan, synthesis string) (string, error) {
	return a.critical, nil
}

type fakeSearchExecutor struct {
	results []core.SearchResult
	saveErr error
}

func (s *fakeSearchExecutor) ExecuteSearchTasks(ctx context.Context, tasks []core.SearchTask) []core.SearchResult {
	return s.results
}

func (s *fakeSearchExecutor) EnrichTopURLs(ctx context.Context, results []core.SearchResult) {}

func (s *fakeSearchExecutor) SaveResearchData(ctx context.Context, traceID8 string, results []core.SearchResult) (string, error) {
	return "path", s.saveErr
}

type fakeChartEngine struct {
	available  bool
	specs      []core.ChartSpec
	executions int
}

func (c *fakeChartEngine) SandboxAvailable() bool { return c.available }

func (c *fakeChartEngine) PlanReportCharts(ctx context.Context, resultsSummary, plan, synthesis string) []core.ChartSpec {
	return c.specs
}

func (c *fakeChartEngine) ExecuteChartPlan(ctx context.Context, specs []core.ChartSpec, results []core.SearchResult, synthesis string) (*core.ComputationResult, error) {
	c.executions++
	return &core.ComputationResult{}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		MaxIterations:            3,
		MaxRetries:               2,
		SearchMaxTotalQueries:    10,
		QueriesFirstIteration:    5,
		QueriesFollowupIteration: 3,
		LogDir:                   t.TempDir(),
	}
}

func newTestOrchestrator(t *testing.T, llm LLMClient, p Planner, a Analyzer, s SearchExecutor, c ChartEngine) *Orchestrator {
	t.Helper()
	return &Orchestrator{
		cfg:         testConfig(t),
		llm:         llm,
		planner:     p,
		analyzer:    a,
		searchExec:  s,
		chartEngine: c,
		logger:      nil,
	}
}

func samplePlanner() *fakePlanner {
	return &fakePlanner{
		plan:       "## Section One\n\nContent.\n",
		domains:    []core.Domain{{Name: "domain a", Weight: 1.0}},
		tasks:      []core.SearchTask{{Query: "test query", Priority: 1}},
		sufficient: true,
	}
}

func sampleSearchExec() *fakeSearchExecutor {
	return &fakeSearchExecutor{
		results: []core.SearchResult{
			{Query: "test query", Result: core.SearchResultBody{Sources: []core.Source{{URL: "https://a.example", Title: "A", Relevance: 0.8}}}},
		},
	}
}

func TestProcessCompletesAndMarksWorkflowCompleted(t *testing.T) {
	o := newTestOrchestrator(t,
		&fakeLLM{response: "# Final Report\n\nBody text [1].\n"},
		samplePlanner(),
		&fakeAnalyzer{critical: "critical findings"},
		sampleSearchExec(),
		&fakeChartEngine{available: false},
	)

	var events []core.ResearchEvent
	req := core.NewRequest("test query", core.ModeDeepResearch)
	resp, err := o.Process(context.Background(), req, func(ev core.ResearchEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Metadata["workflowStatus"] != string(core.WorkflowCompleted) {
		t.Errorf("expected workflow completed, got %+v", resp.Metadata)
	}
	if resp.Result == "" {
		t.Error("expected non-empty final report result")
	}
	if len(events) == 0 {
		t.Error("expected streaming events to be recorded")
	}
	if events[0].Data != "init" {
		t.Errorf("expected first event to be init, got %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Type != core.EventFinalReport {
		t.Errorf("expected last event to be final_report, got %+v", last)
	}
}

func TestProcessStopsSearchLoopWhenSufficient(t *testing.T) {
	planner := samplePlanner()
	planner.sufficient = true
	o := newTestOrchestrator(t,
		&fakeLLM{response: "report"},
		planner,
		&fakeAnalyzer{},
		sampleSearchExec(),
		&fakeChartEngine{available: false},
	)

	req := core.NewRequest("q", core.ModeDeepResearch)
	_, err := o.Process(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if planner.serpCalls != 1 {
		t.Errorf("expected exactly 1 SERP query generation call, got %d", planner.serpCalls)
	}
	if planner.followupCalls != 0 {
		t.Errorf("expected no followup calls once sufficient on iteration 1, got %d", planner.followupCalls)
	}
}

func TestProcessContinuesSearchLoopUntilSufficient(t *testing.T) {
	planner := samplePlanner()
	planner.sufficient = false // never sufficient; loop goes on to a follow-up wave
	o := newTestOrchestrator(t,
		&fakeLLM{response: "report"},
		planner,
		&fakeAnalyzer{},
		sampleSearchExec(),
		&fakeChartEngine{available: false},
	)

	req := core.NewRequest("q", core.ModeDeepResearch)
	_, err := o.Process(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if planner.serpCalls != 1 {
		t.Errorf("expected 1 initial SERP call, got %d", planner.serpCalls)
	}
	// followup returns no tasks by default, so the loop should break after
	// iteration 2 once GenerateFollowupQueries yields nothing.
	if planner.followupCalls == 0 {
		t.Error("expected at least one followup query call on iteration 2")
	}
}

func TestProcessMarksWorkflowFailedOnNonRetryablePlanError(t *testing.T) {
	planner := samplePlanner()
	planner.writeErr = errors.New("business_error: invalid query")
	o := newTestOrchestrator(t,
		&fakeLLM{response: "report"},
		planner,
		&fakeAnalyzer{},
		sampleSearchExec(),
		&fakeChartEngine{available: false},
	)

	req := core.NewRequest("q", core.ModeDeepResearch)
	resp, err := o.Process(context.Background(), req, nil)
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if resp.Metadata["workflowStatus"] != string(core.WorkflowFailed) {
		t.Errorf("expected workflow failed, got %+v", resp.Metadata)
	}
}

func TestProcessSkipsChartExecutionWithoutSandbox(t *testing.T) {
	chartEngine := &fakeChartEngine{available: false, specs: []core.ChartSpec{{Title: "x"}}}
	o := newTestOrchestrator(t,
		&fakeLLM{response: "report"},
		samplePlanner(),
		&fakeAnalyzer{},
		sampleSearchExec(),
		chartEngine,
	)

	req := core.NewRequest("q", core.ModeDeepResearch)
	_, err := o.Process(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chartEngine.executions != 0 {
		t.Errorf("expected chart execution to be skipped without sandbox, got %d executions", chartEngine.executions)
	}
}

func TestRunPipelineEmitsFinalReportEventWithReportBody(t *testing.T) {
	llm := &fakeLLM{response: "# Findings\n\nSee [1] for details."}
	o := newTestOrchestrator(t,
		llm,
		samplePlanner(),
		&fakeAnalyzer{critical: "analysis"},
		sampleSearchExec(),
		&fakeChartEngine{available: false},
	)

	var finalReportData any
	req := core.NewRequest("q", core.ModeDeepResearch)
	_, err := o.Process(context.Background(), req, func(ev core.ResearchEvent) {
		if ev.Type == core.EventFinalReport {
			finalReportData = ev.Data
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, ok := finalReportData.(string)
	if !ok || body == "" {
		t.Fatalf("expected final_report event to carry the report body, got %+v", finalReportData)
	}
}

func TestStepHelperUpdatesCurrentStepAndEmitsProgress(t *testing.T) {
	var recorded []core.ResearchEvent
	q := streaming.NewQueue(4, func(ev core.ResearchEvent) { recorded = append(recorded, ev) })
	state := core.NewWorkflowState()

	done := step(zap.NewNop(), "trace-1", state, q, "my-step")
	done()
	q.Close()

	if state.CurrentStep != "my-step" {
		t.Errorf("expected current step to update, got %q", state.CurrentStep)
	}
	if len(recorded) != 1 || recorded[0].Step != "my-step" {
		t.Errorf("expected one progress event for my-step, got %+v", recorded)
	}
}
