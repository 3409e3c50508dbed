package planner

import (
	"context"
	"testing"

	"deepresearch/internal/llmprovider"
)

type fakeClient struct {
	response string
	err      error
}

func (f *fakeClient) Generate(ctx context.Context, messages []llmprovider.Message, opts llmprovider.Options) (string, llmprovider.TokenInfo, error) {
	if f.err != nil {
		return "", llmprovider.TokenInfo{}, f.err
	}
	return f.response, llmprovider.TokenInfo{}, nil
}

func TestIdentifyResearchDomainsParsesJSON(t *testing.T) {
	client := &fakeClient{response: `{"domains": [{"name": "Economics", "weight": 0.6, "searchAngles": ["a", "b"]}, {"name": "Policy", "weight": 0.4, "searchAngles": ["c"]}]}`}
	p := New(client)

	domains, err := p.IdentifyResearchDomains(context.Background(), "q", "plan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(domains) != 2 || domains[0].Name != "Economics" {
		t.Fatalf("unexpected domains: %+v", domains)
	}
}

func TestIdentifyResearchDomainsDegradesOnParseFailure(t *testing.T) {
	client := &fakeClient{response: "not json at all"}
	p := New(client)

	domains, err := p.IdentifyResearchDomains(context.Background(), "q", "plan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domains != nil {
		t.Errorf("expected nil domains on parse failure, got %+v", domains)
	}
}

func TestGenerateSerpQueriesCapsAtBudgetByPriority(t *testing.T) {
	client := &fakeClient{response: `["q1", "q2", "q3", "q4", "q5"]`}
	p := New(client)

	tasks, err := p.GenerateSerpQueries(context.Background(), "topic", "plan", nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks capped by budget, got %d", len(tasks))
	}
	// Priority is assigned len-i, so the first 3 returned by the LLM have the
	// highest priority and must survive the cap.
	if tasks[0].Query != "q1" || tasks[1].Query != "q2" || tasks[2].Query != "q3" {
		t.Errorf("expected top-priority queries retained, got %+v", tasks)
	}
}

func TestGenerateFollowupQueriesReturnsEmptyWhenBudgetExhausted(t *testing.T) {
	client := &fakeClient{response: `["should not be used"]`}
	p := New(client)

	tasks, err := p.GenerateFollowupQueries(context.Background(), "plan", "results", []string{"old query"}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks at zero budget, got %+v", tasks)
	}
}

func TestReviewResearchCompletenessParsesStructured(t *testing.T) {
	client := &fakeClient{response: `{"isSufficient": true, "overallCoverage": 80, "sections": [{"name": "Intro", "coverage": 90, "depth": "deep", "gaps": []}], "priorityGaps": []}`}
	p := New(client)

	sufficient, report, err := p.ReviewResearchCompleteness(context.Background(), "plan", "results", 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sufficient {
		t.Error("expected isSufficient true")
	}
	if report.OverallCoverage != 80 {
		t.Errorf("expected coverage 80, got %d", report.OverallCoverage)
	}
}

func TestReviewResearchCompletenessFallsBackOnParseFailure(t *testing.T) {
	client := &fakeClient{response: "YES, coverage looks complete to me"}
	p := New(client)

	sufficient, _, err := p.ReviewResearchCompleteness(context.Background(), "plan", "results", 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sufficient {
		t.Error("expected fallback YES detection to report sufficient")
	}
}

func TestReviewResearchCompletenessFallbackNoWhenYESAbsentFromPrefix(t *testing.T) {
	client := &fakeClient{response: "Not quite there YES"}
	p := New(client)

	sufficient, _, err := p.ReviewResearchCompleteness(context.Background(), "plan", "results", 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sufficient {
		t.Error("expected fallback to require YES within first 10 chars")
	}
}

func TestWriteReportPlanPropagatesClientError(t *testing.T) {
	client := &fakeClient{err: context.DeadlineExceeded}
	p := New(client)

	_, err := p.WriteReportPlan(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}

