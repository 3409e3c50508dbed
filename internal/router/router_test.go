package router

import (
	"testing"

	"deepresearch/internal/core"
)

func TestRouteKeywordPriorityOrder(t *testing.T) {
	cases := []struct {
		query string
		want  core.Mode
	}{
		{"write a function to sort a list", core.ModeCode},
		{"search for the latest news on AI", core.ModeSearch},
		{"can you explain quantum computing", core.ModeKnowledge},
		{"deep analyze the market trends", core.ModeThinking},
		{"hello there", core.ModeChat},
	}
	for _, tc := range cases {
		d := Route(Config{}, &core.Request{Query: tc.query, Mode: core.ModeAuto})
		if d.Mode != tc.want {
			t.Errorf("Route(%q) = %v, want %v", tc.query, d.Mode, tc.want)
		}
	}
}

func TestRouteCodeBeatsSearchWhenBothKeywordsPresent(t *testing.T) {
	d := Route(Config{}, &core.Request{Query: "search for code examples of function composition", Mode: core.ModeAuto})
	if d.Mode != core.ModeCode {
		t.Errorf("expected code to win priority, got %v", d.Mode)
	}
}

func TestRouteExplicitModeBypassesKeywords(t *testing.T) {
	d := Route(Config{}, &core.Request{Query: "irrelevant text", Mode: core.ModeDeepResearch})
	if d.Mode != core.ModeDeepResearch {
		t.Errorf("expected explicit mode preserved, got %v", d.Mode)
	}
	if d.Confidence != 1.0 {
		t.Errorf("expected full confidence on explicit mode, got %v", d.Confidence)
	}
}

func TestRouteComplexityScoringOptIn(t *testing.T) {
	d := Route(Config{ComplexityAnalysis: true}, &core.Request{Query: "hello", Mode: core.ModeAuto})
	if d.Complexity == nil {
		t.Fatal("expected complexity score when enabled")
	}

	d2 := Route(Config{ComplexityAnalysis: false}, &core.Request{Query: "hello", Mode: core.ModeAuto})
	if d2.Complexity != nil {
		t.Error("expected no complexity score when disabled")
	}
}

func TestComplexityScoreThresholds(t *testing.T) {
	if lvl := RecommendedLevel(0.65); lvl != core.Agent {
		t.Errorf("expected Agent at 0.65, got %v", lvl)
	}
	if lvl := RecommendedLevel(0.4); lvl != core.System2 {
		t.Errorf("expected System2 at 0.4, got %v", lvl)
	}
	if lvl := RecommendedLevel(0.1); lvl != core.System1 {
		t.Errorf("expected System1 at 0.1, got %v", lvl)
	}
}

func TestAllowedForNeverExpandsCatalogueMembership(t *testing.T) {
	if !AllowedFor(core.ModeChat, ToolRespond) {
		t.Error("chat should always permit respond")
	}
	if AllowedFor(core.ModeChat, ToolWebSearch) {
		t.Error("chat should not permit web_search")
	}
	if !AllowedFor(core.ModeDeepResearch, ToolCodeExecute) {
		t.Error("deep research should permit code_execute")
	}
	if AllowedFor(core.ModeDeepResearch, ToolCodeAnalyze) {
		t.Error("deep research should not permit code_analyze per the table")
	}
}

func TestAllowedSetOrderFollowsCatalogue(t *testing.T) {
	got := AllowedSet(core.ModeSearch)
	want := []ToolName{ToolRespond, ToolWebSearch, ToolWebFetch}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
