// Package router implements the pure keyword+score dispatch from spec §4.4.
// Shape grounded on the teacher's repl/classifier.go ("classify, then
// decide") and repl/router.go (dispatch struct), generalized from an
// LLM-driven classifier into the deterministic keyword+scoring function the
// spec specifies directly.
package router

import (
	"strings"

	"deepresearch/internal/core"
)

// Decision is the router's output (spec §4.4).
type Decision struct {
	Mode           core.Mode
	Complexity     *float64
	Confidence     float64
	Reason         string
	CognitiveLevel core.CognitiveLevel
}

// Config toggles the optional complexity-scoring pass.
type Config struct {
	ComplexityAnalysis bool
}

var (
	codeKeywords      = []string{"code", "代碼", "function", "程式"}
	searchKeywords    = []string{"search", "搜尋", "find"}
	knowledgeKeywords = []string{"knowledge", "explain", "知識", "解釋"}
	thinkingKeywords  = []string{"deep", "analyze", "分析", "思考"}

	multiStepKeywords = []string{"first", "then", "after that", "next", "step", "followed by"}
	toolNeedKeywords  = []string{"search", "find", "look up", "calculate", "fetch", "run", "execute"}
)

// Route decides a Mode for a Request. When req.Mode is anything other than
// ModeAuto, that mode is returned unchanged with full confidence — routing
// only engages on auto.
func Route(cfg Config, req *core.Request) Decision {
	if req.Mode != core.ModeAuto {
		return Decision{
			Mode:           req.Mode,
			Confidence:     1.0,
			Reason:         "explicit mode",
			CognitiveLevel: req.Mode.CognitiveLevel(),
		}
	}

	mode, reason := classifyByKeyword(req.Query)
	decision := Decision{
		Mode:           mode,
		Confidence:     0.8,
		Reason:         reason,
		CognitiveLevel: mode.CognitiveLevel(),
	}

	if cfg.ComplexityAnalysis {
		score := complexityScore(req.Query)
		decision.Complexity = &score
	}

	return decision
}

// classifyByKeyword walks the §4.4 priority order: code, search, knowledge,
// thinking, default chat.
func classifyByKeyword(query string) (core.Mode, string) {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, codeKeywords):
		return core.ModeCode, "matched code keyword"
	case containsAny(q, searchKeywords):
		return core.ModeSearch, "matched search keyword"
	case containsAny(q, knowledgeKeywords):
		return core.ModeKnowledge, "matched knowledge keyword"
	case containsAny(q, thinkingKeywords):
		return core.ModeThinking, "matched thinking keyword"
	default:
		return core.ModeChat, "no keyword matched, defaulting to chat"
	}
}

// complexityScore blends four weighted signals into a 0..1 score (spec
// §4.4): length (0.2), multi-step indicators (0.3), tool-need indicators
// (0.3), question-mark count (0.2).
func complexityScore(query string) float64 {
	q := strings.ToLower(query)

	lengthSignal := clamp01(float64(len(strings.Fields(query))) / 60.0)
	multiStepSignal := clamp01(float64(countAny(q, multiStepKeywords)) / 2.0)
	toolNeedSignal := clamp01(float64(countAny(q, toolNeedKeywords)) / 2.0)
	questionSignal := clamp01(float64(strings.Count(query, "?")) / 3.0)

	return 0.2*lengthSignal + 0.3*multiStepSignal + 0.3*toolNeedSignal + 0.2*questionSignal
}

// RecommendedLevel maps a complexity score to the §4.4 thresholds.
func RecommendedLevel(score float64) core.CognitiveLevel {
	switch {
	case score >= 0.6:
		return core.Agent
	case score >= 0.3:
		return core.System2
	default:
		return core.System1
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func countAny(haystack string, needles []string) int {
	count := 0
	for _, n := range needles {
		count += strings.Count(haystack, n)
	}
	return count
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
