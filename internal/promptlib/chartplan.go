package promptlib

import "fmt"

// allowedLibraries is the fixed sandbox library allowlist baked into every
// generated-code prompt (spec §4.8 point 4).
var allowedLibraries = []string{"numpy", "scipy", "sympy", "pandas", "matplotlib", "seaborn", "plotly", "sklearn"}

// cjkFontFallback is the hard-coded CJK font fallback list chart code must
// configure so labels in non-Latin scripts render instead of tofu boxes.
var cjkFontFallback = []string{"Noto Sans CJK SC", "Microsoft YaHei", "SimHei", "WenQuanYi Zen Hei", "DejaVu Sans"}

// ChartPlanPrompt builds the prompt for planReportCharts (spec §4.8.1).
func ChartPlanPrompt(resultsSummary, plan, synthesis string) string {
	basis := Sanitize(resultsSummary)
	if synthesis != "" {
		basis = Sanitize(synthesis)
	}
	return fmt.Sprintf(`Report plan:
%s

Research findings:
%s

Propose up to 4 charts that would meaningfully illustrate this report's
findings. Chart types available: bar, line, pie, heatmap, scatter,
waterfall, radar.

Return JSON only:
{"charts": [{"title": "...", "chartType": "bar", "dataDescription": "...", "targetSection": "...", "insight": "..."}]}`,
		Sanitize(plan), basis)
}

// ChartCodePrompt builds the prompt that asks the LLM to emit a Python code
// block for one chart spec (spec §4.8.2).
func ChartCodePrompt(title, chartType, dataDescription, insight string) string {
	return fmt.Sprintf(`Write Python code that produces the following chart:

Title: %s
Chart type: %s
Data: %s
Insight to convey: %s

Rules:
- Only these libraries may be imported: %s.
- No network access, no filesystem access.
- Assign the final rendered result to a variable named "result".
- Call plt.tight_layout() then plt.show() at the end.
- Print each figure to stdout as PNG bytes, base64-encoded, on its own line
  prefixed "FIGURE:".
- Configure a CJK-capable font fallback chain for any non-Latin labels,
  trying in order: %s.

Return only the Python code block.`,
		Sanitize(title), Sanitize(chartType), Sanitize(dataDescription), Sanitize(insight),
		joinComma(allowedLibraries), joinComma(cjkFontFallback))
}

// FixCodePrompt builds the prompt for fixAnalysisCode (spec §4.8.3).
func FixCodePrompt(code, errorMessage string) string {
	return fmt.Sprintf(`The following Python code failed to execute:

%s

Error:
%s

Return a corrected version of the code as a single Python code block. Keep
the same structure and the "result" variable convention.`,
		code, Sanitize(errorMessage))
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
