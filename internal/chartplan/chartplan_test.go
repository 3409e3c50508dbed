package chartplan

import (
	"context"
	"errors"
	"testing"
	"time"

	"deepresearch/internal/core"
	"deepresearch/internal/llmprovider"
	"deepresearch/internal/sandbox"
)

type fakeClient struct {
	responses []string
	calls     int
	err       error
}

func (f *fakeClient) Generate(ctx context.Context, messages []llmprovider.Message, opts llmprovider.Options) (string, llmprovider.TokenInfo, error) {
	if f.err != nil {
		return "", llmprovider.TokenInfo{}, f.err
	}
	resp := f.responses[f.calls%len(f.responses)]
	f.calls++
	return resp, llmprovider.TokenInfo{}, nil
}

type fakeSandbox struct {
	failUntilCall int
	call          int
	result        sandbox.ExecuteResult
}

func (s *fakeSandbox) Execute(ctx context.Context, code string, timeout time.Duration) (sandbox.ExecuteResult, error) {
	s.call++
	if s.call <= s.failUntilCall {
		return sandbox.ExecuteResult{}, errors.New("syntax error")
	}
	return s.result, nil
}

func TestPlanReportChartsCapsAt4(t *testing.T) {
	client := &fakeClient{responses: []string{`{"charts": [
		{"title":"a","chartType":"bar"},
		{"title":"b","chartType":"line"},
		{"title":"c","chartType":"pie"},
		{"title":"d","chartType":"scatter"},
		{"title":"e","chartType":"radar"}
	]}`}}
	e := New(client, nil, 0, 0)

	specs := e.PlanReportCharts(context.Background(), "summary", "plan", "")
	if len(specs) != 4 {
		t.Fatalf("expected 4 charts (capped), got %d", len(specs))
	}
}

func TestPlanReportChartsReturnsEmptyOnFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("llm down")}
	e := New(client, nil, 0, 0)

	specs := e.PlanReportCharts(context.Background(), "summary", "plan", "")
	if specs != nil {
		t.Errorf("expected nil on failure, got %+v", specs)
	}
}

func TestSandboxAvailableReflectsPresence(t *testing.T) {
	e1 := New(&fakeClient{}, nil, 0, 0)
	if e1.SandboxAvailable() {
		t.Error("expected unavailable with nil sandbox")
	}
	e2 := New(&fakeClient{}, &fakeSandbox{}, 0, 0)
	if !e2.SandboxAvailable() {
		t.Error("expected available with non-nil sandbox")
	}
}

func TestExecuteChartPlanReturnsNilWithoutSandbox(t *testing.T) {
	e := New(&fakeClient{}, nil, 0, 0)
	result, err := e.ExecuteChartPlan(context.Background(), []core.ChartSpec{{Title: "x"}}, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Error("expected nil result without sandbox")
	}
}

func TestExecuteChartPlanCircuitBreakerStopsAfterMaxFailures(t *testing.T) {
	client := &fakeClient{responses: []string{"```python\nprint(1)\n```"}}
	sb := &fakeSandbox{failUntilCall: 100} // always fails
	e := New(client, sb, 2, time.Second)

	specs := []core.ChartSpec{{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}}
	result, err := e.ExecuteChartPlan(context.Background(), specs, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Error("expected nil result when all charts fail")
	}
	// each failing chart costs 2 sandbox Execute calls (ExecuteAnalysisCode
	// retries once on failure) and counts as 1 consecutive failure, so a
	// breaker of 2 trips after charts a and b: at most 4 calls, and charts c
	// and d are never attempted.
	if sb.call > 4 {
		t.Errorf("expected circuit breaker to bound sandbox calls, got %d calls", sb.call)
	}
}

func TestExecuteAnalysisCodeRetriesOnceOnFailure(t *testing.T) {
	client := &fakeClient{responses: []string{"```python\nfixed code\n```"}}
	sb := &fakeSandbox{failUntilCall: 1, result: sandbox.ExecuteResult{Stdout: "ok"}}
	e := New(client, sb, 2, time.Second)

	res, err := e.ExecuteAnalysisCode(context.Background(), "broken code", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "ok" {
		t.Errorf("expected successful retry, got %+v", res)
	}
	if sb.call != 2 {
		t.Errorf("expected exactly 2 sandbox calls (original + 1 retry), got %d", sb.call)
	}
}

func TestExecuteAnalysisCodeNoRetryPropagatesImmediately(t *testing.T) {
	sb := &fakeSandbox{failUntilCall: 100}
	e := New(&fakeClient{}, sb, 2, time.Second)

	_, err := e.ExecuteAnalysisCode(context.Background(), "broken code", false)
	if err == nil {
		t.Fatal("expected error without retry")
	}
	if sb.call != 1 {
		t.Errorf("expected exactly 1 sandbox call without retry, got %d", sb.call)
	}
}
