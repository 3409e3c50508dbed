package streaming

import (
	"encoding/json"
	"fmt"

	"deepresearch/internal/core"
)

// EncodeSSE renders an event as one SSE frame: "data: {JSON}\n\n" (spec §6).
func EncodeSSE(ev core.ResearchEvent) (string, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("streaming: marshaling event: %w", err)
	}
	return "data: " + string(body) + "\n\n", nil
}
