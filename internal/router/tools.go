package router

import "deepresearch/internal/core"

// ToolName is one entry in the LLM-visible tool catalogue. The catalogue
// itself never shrinks across modes — only which names a mode is permitted
// to invoke does (spec §4.4: preserves prompt-prefix stability for
// provider-side KV-cache hit rate).
type ToolName string

const (
	ToolRespond     ToolName = "respond"
	ToolWebSearch   ToolName = "web_search"
	ToolWebFetch    ToolName = "web_fetch"
	ToolCodeExecute ToolName = "code_execute"
	ToolCodeAnalyze ToolName = "code_analyze"
)

// FullCatalogue is every tool the LLM ever sees listed, regardless of mode.
var FullCatalogue = []ToolName{ToolRespond, ToolWebSearch, ToolWebFetch, ToolCodeExecute, ToolCodeAnalyze}

// allowedTools is the immutable mode → permitted-tool-set table.
var allowedTools = map[core.Mode]map[ToolName]bool{
	core.ModeChat:         set(ToolRespond),
	core.ModeKnowledge:    set(ToolRespond),
	core.ModeSearch:       set(ToolRespond, ToolWebSearch, ToolWebFetch),
	core.ModeCode:         set(ToolRespond, ToolCodeExecute, ToolCodeAnalyze),
	core.ModeThinking:     set(ToolRespond),
	core.ModeDeepResearch: set(ToolRespond, ToolWebSearch, ToolWebFetch, ToolCodeExecute),
}

func set(names ...ToolName) map[ToolName]bool {
	m := make(map[ToolName]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// AllowedFor returns whether a given tool is permitted for a mode. Modes
// absent from the table permit only "respond".
func AllowedFor(mode core.Mode, tool ToolName) bool {
	allowed, ok := allowedTools[mode]
	if !ok {
		return tool == ToolRespond
	}
	return allowed[tool]
}

// AllowedSet returns the full permitted set for a mode, for callers that
// need to enumerate rather than test membership.
func AllowedSet(mode core.Mode) []ToolName {
	allowed, ok := allowedTools[mode]
	if !ok {
		return []ToolName{ToolRespond}
	}
	out := make([]ToolName, 0, len(allowed))
	for _, name := range FullCatalogue {
		if allowed[name] {
			out = append(out, name)
		}
	}
	return out
}
