// Package promptlib holds the pure prompt-template functions used by every
// LLM-driven stage of the pipeline (planner, analyzer, section synthesizer,
// computation engine, reporter). No network calls live here — callers pass
// the resulting string to an llmprovider.Provider.
package promptlib

import "strings"

// Sanitize escapes '<' and '>' in interpolated user content so a query or
// search result cannot break out of the XML-ish tags some prompts use to
// delimit sections (spec §4.5).
func Sanitize(s string) string {
	r := strings.NewReplacer("<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
