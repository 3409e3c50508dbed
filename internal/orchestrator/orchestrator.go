// Package orchestrator drives the full deep-research pipeline (spec §4.11),
// composing every stage package built for this module: planner, searchexec,
// analyzer, sectionsynth, chartplan, reporter and streaming, wrapped in a
// workflow-level retry.
//
// Grounded on the teacher's DeepOrchestrator (internal/orchestrator/deep.go):
// constructor-injection of one collaborator per pipeline stage, bus.Publish
// calls at stage boundaries — generalized here from its STORM-style
// perspective/DAG execution into the plan → domains → search-loop →
// synthesis → charts → report pipeline spec §4.11 names, and from the
// teacher's direct events.Bus to this module's streaming.Queue.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"deepresearch/internal/analyzer"
	"deepresearch/internal/chartplan"
	"deepresearch/internal/config"
	"deepresearch/internal/core"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/obslog"
	"deepresearch/internal/planner"
	"deepresearch/internal/reporter"
	"deepresearch/internal/retry"
	"deepresearch/internal/sandbox"
	"deepresearch/internal/searchexec"
	"deepresearch/internal/sectionsynth"
	"deepresearch/internal/streaming"
)

// workflowBaseDelay is the workflow-level retry's exponential-backoff base
// (spec §4.11 point 2: "base 2s").
const workflowBaseDelay = 2 * time.Second

// Orchestrator is the composition root for one deep-research pipeline. Its
// collaborators are narrow local interfaces (interfaces.go) rather than
// concrete stage types, so tests can substitute fakes for every stage.
type Orchestrator struct {
	cfg         *config.Config
	llm         LLMClient
	planner     Planner
	analyzer    Analyzer
	searchExec  SearchExecutor
	chartEngine ChartEngine
	logger      *zap.Logger
}

// New wires every stage package to the shared LLM client, search executor
// and (optional) sandbox service. sandboxSvc may be nil — chart execution
// is then skipped entirely while chart planning still runs (spec §4.8).
func New(cfg *config.Config, llm *llmprovider.MultiClient, searchExec *searchexec.Executor, sandboxSvc sandbox.Service, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = obslog.New(cfg.Verbose)
	}
	return &Orchestrator{
		cfg:         cfg,
		llm:         llm,
		planner:     planner.New(llm),
		analyzer:    analyzer.New(llm),
		searchExec:  searchExec,
		chartEngine: chartplan.New(llm, sandboxSvc, cfg.SandboxMaxChartFail, cfg.SandboxComputeTimeout),
		logger:      logger,
	}
}

// Process runs the full pipeline for req, streaming lifecycle and
// stage-boundary events to callback (which may be nil), and returns the
// completed Response (spec §4.11, §3).
func (o *Orchestrator) Process(ctx context.Context, req *core.Request, callback streaming.Callback) (*core.Response, error) {
	resp := core.NewResponse(req)
	state := core.NewWorkflowState()
	start := time.Now()

	emit := func(ev core.ResearchEvent) {
		resp.AppendEvent(ev)
		if callback != nil {
			callback(ev)
		}
	}

	report, err := streaming.ProcessWithStreaming(ctx, "orchestrator", emit, func(ctx context.Context, q *streaming.Queue) (string, error) {
		return o.runWithRetry(ctx, req, state, q)
	})

	resp.TimeMs = time.Since(start).Milliseconds()
	resp.Metadata["workflowStatus"] = string(state.Status)
	resp.Metadata["iterations"] = state.Iterations
	if err != nil {
		return resp, err
	}
	resp.Result = report
	return resp, nil
}

// runWithRetry wraps runPipeline in the workflow-level retry decorator:
// MAX_RETRIES=2, only {network, llm} categories retry, exponential backoff
// base 2s (spec §4.11 point 2). On exhaustion the workflow state is marked
// failed and the last error propagates unchanged.
func (o *Orchestrator) runWithRetry(ctx context.Context, req *core.Request, state *core.WorkflowState, q *streaming.Queue) (string, error) {
	retryCfg := retry.Config{BaseDelay: workflowBaseDelay, MaxRetries: o.cfg.MaxRetries}

	var report string
	attempts, err := retry.Do(ctx, retryCfg, func(ctx context.Context) error {
		result, stageErr := o.runPipeline(ctx, req, state, q)
		if stageErr != nil {
			return stageErr
		}
		report = result
		return nil
	})

	for i, a := range attempts {
		state.Errors = append(state.Errors, core.WorkflowError{
			Error:      a.Err.Error(),
			Category:   string(a.Category),
			Step:       state.CurrentStep,
			RetryCount: i,
			Timestamp:  time.Now(),
		})
	}

	if err != nil {
		state.Status = core.WorkflowFailed
		return "", err
	}
	state.Status = core.WorkflowCompleted
	return report, nil
}

// step moves the workflow to a new named step, appends it to the stage log,
// emits a progress event marking its start, and returns a func to call when
// the step finishes — it logs at Info with traceId/step/durationMs, the
// stage-boundary log density spec §A.1 calls for.
func step(logger *zap.Logger, traceID string, state *core.WorkflowState, q *streaming.Queue, name string) func() {
	state.CurrentStep = name
	state.Steps = append(state.Steps, name)
	q.Emit(core.ResearchEvent{Type: core.EventProgress, Step: name, Data: "start"})

	start := time.Now()
	stageLog := obslog.Stage(logger, traceID, name)
	return func() {
		stageLog.Info("stage complete", obslog.Duration(start))
	}
}

// runPipeline executes pipeline steps 3-9 of spec §4.11: plan, domain
// identification, the bounded search loop, reversible compression, critical
// analysis, chart planning/execution, and final report assembly. It returns
// the finished report body (the final_report event payload).
func (o *Orchestrator) runPipeline(ctx context.Context, req *core.Request, state *core.WorkflowState, q *streaming.Queue) (string, error) {
	pipelineStart := time.Now()

	donePlan := step(o.logger, req.TraceID, state, q, "plan")
	plan, err := o.planner.WriteReportPlan(ctx, req.Query)
	if err != nil {
		donePlan()
		return "", fmt.Errorf("orchestrator: plan stage: %w", err)
	}
	donePlan()
	q.Emit(core.ResearchEvent{Type: core.EventMessage, Step: "plan", Data: plan})

	doneDomains := step(o.logger, req.TraceID, state, q, "domains")
	domains, err := o.planner.IdentifyResearchDomains(ctx, req.Query, plan)
	if err != nil {
		doneDomains()
		return "", fmt.Errorf("orchestrator: domain identification: %w", err)
	}
	doneDomains()

	allResults, synthesis, err := o.searchLoop(ctx, req, plan, domains, state, q)
	if err != nil {
		return "", err
	}

	donePersist := step(o.logger, req.TraceID, state, q, "persist-research-data")
	if _, err := o.searchExec.SaveResearchData(ctx, req.TraceID8(), allResults); err != nil {
		o.logger.Warn("persisting research data failed, continuing without a checkpoint", zap.Error(err))
	}
	donePersist()

	doneCritical := step(o.logger, req.TraceID, state, q, "critical-analysis")
	criticalAnalysis, err := o.analyzer.CriticalAnalysisStage(ctx, allResults, plan, synthesis.Synthesis)
	if err != nil {
		doneCritical()
		return "", fmt.Errorf("orchestrator: critical analysis: %w", err)
	}
	doneCritical()

	resultsSummary := o.analyzer.SummarizeSearchResults(allResults)

	doneChartPlan := step(o.logger, req.TraceID, state, q, "chart-planning")
	chartSpecs := o.chartEngine.PlanReportCharts(ctx, resultsSummary, plan, synthesis.Synthesis)
	doneChartPlan()

	var computation *core.ComputationResult
	if o.chartEngine.SandboxAvailable() && len(chartSpecs) > 0 {
		doneChartExec := step(o.logger, req.TraceID, state, q, "chart-execution")
		computation, err = o.chartEngine.ExecuteChartPlan(ctx, chartSpecs, allResults, synthesis.Synthesis)
		if err != nil {
			o.logger.Warn("chart execution failed, continuing without figures", zap.Error(err))
			computation = nil
		}
		doneChartExec()
	}

	finalReport, err := o.assembleFinalReport(ctx, req, plan, allResults, synthesis, criticalAnalysis, computation, state, q, pipelineStart)
	if err != nil {
		return "", err
	}

	return finalReport, nil
}

// searchLoop runs the bounded search loop: at most MaxIterations waves, at
// most MaxTotalQueries total queries, breaking early once the planner
// reports sufficient coverage or the query budget is exhausted (spec §4.11
// point 5).
func (o *Orchestrator) searchLoop(ctx context.Context, req *core.Request, plan string, domains []core.Domain, state *core.WorkflowState, q *streaming.Queue) ([]core.SearchResult, core.SynthesisRecord, error) {
	var allResults []core.SearchResult
	var executedQueries []string
	var synthesis core.SynthesisRecord
	totalQueries := 0
	maxTotal := o.cfg.SearchMaxTotalQueries

	for iteration := 0; iteration < o.cfg.MaxIterations; iteration++ {
		state.Iterations = iteration + 1
		doneIteration := step(o.logger, req.TraceID, state, q, fmt.Sprintf("search-iteration-%d", iteration+1))

		remaining := maxTotal - totalQueries
		if remaining <= 0 {
			doneIteration()
			break
		}

		budget := o.cfg.QueriesFollowupIteration
		if iteration == 0 {
			budget = o.cfg.QueriesFirstIteration
		}
		budget = min(budget, remaining)

		var tasks []core.SearchTask
		var err error
		if iteration == 0 {
			tasks, err = o.planner.GenerateSerpQueries(ctx, req.Query, plan, domains, budget)
		} else {
			resultsSummary := o.analyzer.SummarizeSearchResults(allResults)
			tasks, err = o.planner.GenerateFollowupQueries(ctx, plan, resultsSummary, executedQueries, budget)
		}
		if err != nil {
			doneIteration()
			return nil, core.SynthesisRecord{}, fmt.Errorf("orchestrator: generating queries (iteration %d): %w", iteration+1, err)
		}
		if len(tasks) == 0 {
			doneIteration()
			break
		}

		for _, t := range tasks {
			executedQueries = append(executedQueries, t.Query)
		}
		totalQueries += len(tasks)

		waveResults := o.searchExec.ExecuteSearchTasks(ctx, tasks)
		o.searchExec.EnrichTopURLs(ctx, waveResults)
		allResults = append(allResults, waveResults...)

		for _, r := range waveResults {
			q.Emit(core.ResearchEvent{Type: core.EventSearchResult, Step: state.CurrentStep, Data: r.Query})
		}

		record, err := o.analyzer.IntermediateSynthesis(ctx, plan, waveResults, synthesis.Synthesis)
		if err != nil {
			doneIteration()
			return nil, core.SynthesisRecord{}, fmt.Errorf("orchestrator: intermediate synthesis (iteration %d): %w", iteration+1, err)
		}
		synthesis = record

		resultsSummary := o.analyzer.SummarizeSearchResults(allResults)
		sufficient, _, err := o.planner.ReviewResearchCompleteness(ctx, plan, resultsSummary, iteration+1, record.SectionCoverage)
		if err != nil {
			doneIteration()
			return nil, core.SynthesisRecord{}, fmt.Errorf("orchestrator: completeness review (iteration %d): %w", iteration+1, err)
		}
		doneIteration()
		if sufficient || totalQueries >= maxTotal {
			break
		}
	}

	return allResults, synthesis, nil
}

// assembleFinalReport runs spec §4.11 point 9: section parsing,
// classification, per-section synthesis, reference extraction, the
// academic report prompt, citation analysis, categorized reference
// formatting with inline figure embedding, and bundle persistence.
func (o *Orchestrator) assembleFinalReport(ctx context.Context, req *core.Request, plan string, results []core.SearchResult, synthesis core.SynthesisRecord, criticalAnalysis string, computation *core.ComputationResult, state *core.WorkflowState, q *streaming.Queue, pipelineStart time.Time) (string, error) {
	defer step(o.logger, req.TraceID, state, q, "final-report")()

	sections := sectionsynth.ParseSections(plan)
	classification, err := sectionsynth.ClassifyResultsToSections(ctx, o.llm, sections, results, o.analyzer.SummarizeSearchResults)
	if err != nil {
		return "", fmt.Errorf("orchestrator: section classification: %w", err)
	}

	references := reporter.ExtractReferences(results)

	syntheses, err := sectionsynth.SynthesizeAllSections(ctx, o.llm, sections, classification, results, plan, references, "")
	if err != nil {
		return "", fmt.Errorf("orchestrator: section synthesis: %w", err)
	}
	structuredContext := sectionsynth.BuildHierarchicalContext(syntheses)

	requirement := fmt.Sprintf("Audience: general research audience. Requested mode: %s.", req.Mode)
	prompt := reporter.BuildAcademicReportPrompt(plan, structuredContext, references, requirement, criticalAnalysis, computation)

	reportBody, tokens, err := o.ask(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("orchestrator: writing final report: %w", err)
	}

	cited, uncited, stats := reporter.AnalyzeCitations(reportBody, references)
	finalReport := reporter.FormatReportWithCategorizedReferences(reportBody, cited, uncited, req.Mode, criticalAnalysis != "", stats, computation)

	// tokens only covers the final report-writing call: the planner,
	// analyzer, sectionsynth, and chartplan collaborators sit behind
	// narrow interfaces that don't return llmprovider.TokenInfo, so their
	// usage isn't accounted here.
	model := o.cfg.AnthropicModel
	bundleDir, err := reporter.SaveReportBundle(o.cfg.LogDir, req, finalReport, model, time.Since(pipelineStart), tokens.TotalTokens, stats, state.Steps)
	if err != nil {
		o.logger.Warn("saving report bundle failed, report is still returned in-memory", zap.Error(err))
	} else {
		q.Emit(core.ResearchEvent{Type: core.EventProgress, Step: "final-report", Data: bundleDir})
	}

	return finalReport, nil
}

// ask is the orchestrator's own direct LLM call for report-writing, which
// isn't owned by any narrower stage package.
func (o *Orchestrator) ask(ctx context.Context, prompt string) (string, llmprovider.TokenInfo, error) {
	return o.llm.Generate(ctx, []llmprovider.Message{{Role: "user", Content: prompt}}, llmprovider.Options{Temperature: 0.4})
}
