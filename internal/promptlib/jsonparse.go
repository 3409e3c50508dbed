package promptlib

import (
	"encoding/json"
	"strings"
)

// ExtractJSON implements the spec §4.5 lenient two-stage parse: first try a
// fenced ```json block, then fall back to the whole response. Generalized
// from the teacher's parseStringArray/parseFactsArray bracket-finding (which
// only handled arrays) to also cover object bodies.
//
// out must be a pointer; ExtractJSON reports whether it found and decoded
// anything.
func ExtractJSON(content string, out any) bool {
	if body, ok := fencedJSONBlock(content); ok {
		if json.Unmarshal([]byte(body), out) == nil {
			return true
		}
	}
	if body, ok := jsonSpan(content); ok {
		if json.Unmarshal([]byte(body), out) == nil {
			return true
		}
	}
	return false
}

func fencedJSONBlock(content string) (string, bool) {
	const openTag = "```json"
	start := strings.Index(content, openTag)
	if start < 0 {
		return "", false
	}
	rest := content[start+len(openTag):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// jsonSpan finds the outermost {...} or [...] span in content, preferring
// whichever bracket type starts first.
func jsonSpan(content string) (string, bool) {
	objStart := strings.Index(content, "{")
	arrStart := strings.Index(content, "[")

	useObject := objStart >= 0 && (arrStart < 0 || objStart < arrStart)
	if useObject {
		end := strings.LastIndex(content, "}")
		if end > objStart {
			return content[objStart : end+1], true
		}
	}
	if arrStart >= 0 {
		end := strings.LastIndex(content, "]")
		if end > arrStart {
			return content[arrStart : end+1], true
		}
	}
	return "", false
}
