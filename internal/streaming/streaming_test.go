package streaming

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"deepresearch/internal/core"
)

type recorder struct {
	mu     sync.Mutex
	events []core.ResearchEvent
}

func (r *recorder) callback(ev core.ResearchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []core.ResearchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.ResearchEvent, len(r.events))
	copy(out, r.events)
	return out
}

func TestQueueDispatchesInFIFOOrder(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(10, rec.callback)

	q.Emit(core.ResearchEvent{Type: core.EventProgress, Step: "a"})
	q.Emit(core.ResearchEvent{Type: core.EventMessage, Step: "b"})
	q.Emit(core.ResearchEvent{Type: core.EventSearchResult, Step: "c"})
	q.Close()

	events := rec.snapshot()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Step != "a" || events[1].Step != "b" || events[2].Step != "c" {
		t.Errorf("expected FIFO order a,b,c; got %v", events)
	}
}

func TestQueueStampsTimestampWhenUnset(t *testing.T) {
	rec := &recorder{}
	q := NewQueue(4, rec.callback)
	q.Emit(core.ResearchEvent{Type: core.EventProgress})
	q.Close()

	events := rec.snapshot()
	if len(events) != 1 || events[0].Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be stamped, got %+v", events)
	}
}

func TestProcessWithStreamingBracketsInitCompleteFinalReport(t *testing.T) {
	rec := &recorder{}
	result, err := ProcessWithStreaming(context.Background(), "plan", rec.callback, func(ctx context.Context, q *Queue) (string, error) {
		q.Emit(core.ResearchEvent{Type: core.EventMessage, Step: "plan", Data: "working"})
		return "final report text", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "final report text" {
		t.Errorf("expected result to be returned, got %q", result)
	}

	events := rec.snapshot()
	if len(events) != 4 {
		t.Fatalf("expected 4 events (init, message, complete, final_report), got %d: %+v", len(events), events)
	}
	if events[0].Data != "init" {
		t.Errorf("expected first event to be init, got %+v", events[0])
	}
	if events[1].Data != "working" {
		t.Errorf("expected second event to be the processFn's own emit, got %+v", events[1])
	}
	if events[2].Data != "complete" {
		t.Errorf("expected third event to be complete, got %+v", events[2])
	}
	if events[3].Type != core.EventFinalReport || events[3].Data != "final report text" {
		t.Errorf("expected final event to be final_report with the result, got %+v", events[3])
	}
}

func TestProcessWithStreamingEmitsErrorEventOnFailure(t *testing.T) {
	rec := &recorder{}
	_, err := ProcessWithStreaming(context.Background(), "plan", rec.callback, func(ctx context.Context, q *Queue) (string, error) {
		return "", errors.New("planner exploded")
	})
	if err == nil {
		t.Fatal("expected error to propagate")
	}

	events := rec.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events (init, error), got %d: %+v", len(events), events)
	}
	if events[1].Type != core.EventError {
		t.Errorf("expected second event to be error type, got %+v", events[1])
	}
	if events[1].Data != "planner exploded" {
		t.Errorf("expected error message in data, got %+v", events[1])
	}
}

func TestEncodeSSEFormat(t *testing.T) {
	out, err := EncodeSSE(core.ResearchEvent{Type: core.EventFinalReport, Step: "report", Data: "done"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "data: ") || !strings.HasSuffix(out, "\n\n") {
		t.Errorf("expected SSE frame format, got %q", out)
	}
	if !strings.Contains(out, `"type":"final_report"`) {
		t.Errorf("expected type field in JSON, got %q", out)
	}
}
