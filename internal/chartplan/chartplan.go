// Package chartplan implements the computation engine from spec §4.8:
// chart planning (always runs), chart execution (gated on sandbox
// presence), with a consecutive-failure circuit breaker and a
// fix-on-error retry. Grounded on the teacher's orchestrator's
// accumulate-cost-across-stages shape (deep.go's accumulateSearchCost) and
// tools.Registry's presence-gated capability pattern, generalized to
// chart specs/figures.
package chartplan

import (
	"context"
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	"deepresearch/internal/core"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/promptlib"
	"deepresearch/internal/sandbox"
)

// Client is the narrow LLM surface the computation engine needs.
type Client interface {
	Generate(ctx context.Context, messages []llmprovider.Message, opts llmprovider.Options) (string, llmprovider.TokenInfo, error)
}

// Engine ties an LLM client to an optional sandbox service.
type Engine struct {
	client          Client
	sandboxSvc      sandbox.Service // nil means "no sandbox available"
	maxChartFailures int
	computeTimeout   time.Duration
}

// New builds an Engine. sandboxSvc may be nil.
func New(client Client, sandboxSvc sandbox.Service, maxChartFailures int, computeTimeout time.Duration) *Engine {
	if maxChartFailures <= 0 {
		maxChartFailures = 2
	}
	if computeTimeout <= 0 {
		computeTimeout = 60 * time.Second
	}
	return &Engine{client: client, sandboxSvc: sandboxSvc, maxChartFailures: maxChartFailures, computeTimeout: computeTimeout}
}

// SandboxAvailable reports whether chart execution should run at all (spec
// §4.8: presence of the sandbox capability gates it).
func (e *Engine) SandboxAvailable() bool { return e.sandboxSvc != nil }

func (e *Engine) ask(ctx context.Context, prompt string) (string, error) {
	text, _, err := e.client.Generate(ctx, []llmprovider.Message{{Role: "user", Content: prompt}}, llmprovider.Options{Temperature: 0.3})
	return text, err
}

// PlanReportCharts proposes up to 4 charts (spec §4.8.1). Always runs — no
// sandbox gate. On any failure it returns an empty slice rather than
// propagating the error, since chart planning is best-effort enrichment.
func (e *Engine) PlanReportCharts(ctx context.Context, resultsSummary, plan, synthesis string) []core.ChartSpec {
	text, err := e.ask(ctx, promptlib.ChartPlanPrompt(resultsSummary, plan, synthesis))
	if err != nil {
		return nil
	}

	var parsed struct {
		Charts []struct {
			Title           string `json:"title"`
			ChartType       string `json:"chartType"`
			DataDescription string `json:"dataDescription"`
			TargetSection   string `json:"targetSection"`
			Insight         string `json:"insight"`
		} `json:"charts"`
	}
	if !promptlib.ExtractJSON(text, &parsed) {
		return nil
	}

	const maxCharts = 4
	specs := make([]core.ChartSpec, 0, len(parsed.Charts))
	for _, c := range parsed.Charts {
		if len(specs) >= maxCharts {
			break
		}
		specs = append(specs, core.ChartSpec{
			Title:           c.Title,
			ChartType:       core.ChartType(c.ChartType),
			DataDescription: c.DataDescription,
			TargetSection:   c.TargetSection,
			Insight:         c.Insight,
		})
	}
	return specs
}

var codeBlockRE = regexp.MustCompile("(?s)```(?:python)?\\s*\\n(.*?)```")

func extractCode(text string) string {
	if m := codeBlockRE.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// ExecuteChartPlan executes each spec's generated code in turn, stopping
// early once maxChartFailures consecutive failures have occurred (spec
// §4.8.2). Returns nil when the sandbox is unavailable or no figure was
// produced.
func (e *Engine) ExecuteChartPlan(ctx context.Context, specs []core.ChartSpec, results []core.SearchResult, synthesis string) (*core.ComputationResult, error) {
	if !e.SandboxAvailable() || len(specs) == 0 {
		return nil, nil
	}

	result := &core.ComputationResult{}
	consecutiveFailures := 0

	for _, spec := range specs {
		if consecutiveFailures >= e.maxChartFailures {
			break
		}

		codeText, err := e.ask(ctx, promptlib.ChartCodePrompt(spec.Title, string(spec.ChartType), spec.DataDescription, spec.Insight))
		if err != nil {
			consecutiveFailures++
			continue
		}
		code := extractCode(codeText)

		execResult, err := e.ExecuteAnalysisCode(ctx, code, true)
		if err != nil || execResult == nil {
			consecutiveFailures++
			continue
		}

		consecutiveFailures = 0
		result.Code = append(result.Code, code)
		result.Stdout += execResult.Stdout
		result.ExecutionTime += execResult.ExecutionTime
		result.FigureSpecs = append(result.FigureSpecs, spec)
		for _, fig := range execResult.Figures {
			result.Figures = append(result.Figures, core.Figure{Spec: spec, PNGB64: fig})
		}
	}

	if len(result.Figures) == 0 {
		return nil, nil
	}
	return result, nil
}

// AnalysisExecutionResult is the return shape for ExecuteAnalysisCode (spec
// §4.8.3).
type AnalysisExecutionResult struct {
	Stdout        string
	Figures       []string // base64-encoded PNGs
	ReturnValue   string
	Code          string
	ExecutionTime time.Duration
}

// ExecuteAnalysisCode wraps a sandbox call with the compute timeout. On
// failure with retry=true, it asks the LLM to fix the code once and retries
// exactly once more (spec §4.8.3).
func (e *Engine) ExecuteAnalysisCode(ctx context.Context, code string, retry bool) (*AnalysisExecutionResult, error) {
	res, err := e.sandboxSvc.Execute(ctx, code, e.computeTimeout)
	if err == nil {
		return toAnalysisResult(code, res), nil
	}
	if !retry {
		return nil, err
	}

	fixed, fixErr := e.ask(ctx, promptlib.FixCodePrompt(code, err.Error()))
	if fixErr != nil {
		return nil, err
	}
	fixedCode := extractCode(fixed)

	res2, err2 := e.sandboxSvc.Execute(ctx, fixedCode, e.computeTimeout)
	if err2 != nil {
		return nil, err2
	}
	return toAnalysisResult(fixedCode, res2), nil
}

func toAnalysisResult(code string, res sandbox.ExecuteResult) *AnalysisExecutionResult {
	figures := make([]string, len(res.Figures))
	for i, f := range res.Figures {
		figures[i] = base64.StdEncoding.EncodeToString(f)
	}
	return &AnalysisExecutionResult{
		Stdout:        res.Stdout,
		Figures:       figures,
		ReturnValue:   res.ReturnValue,
		Code:          code,
		ExecutionTime: res.ExecutionTime,
	}
}
