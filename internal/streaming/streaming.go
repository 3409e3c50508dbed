// Package streaming owns the in-memory FIFO event queue and dispatch loop
// from spec §4.10. Grounded on the teacher's events/bus.go channel-based
// pub/sub, narrowed from multi-subscriber fan-out to the single ordered
// consumer a per-request event queue needs, and wired to the closed
// EventType set and init/complete/final_report lifecycle bracketing spec
// §4.10 and §6 specify.
package streaming

import (
	"context"
	"time"

	"deepresearch/internal/core"
)

// Callback receives each event as it is dispatched, in FIFO order. It may
// block (sync dispatch) or return immediately and do its own work
// elsewhere (async dispatch) — the queue does not care which.
type Callback func(core.ResearchEvent)

// Queue is an in-memory FIFO event queue with a long-lived dispatch task.
// A nil event on the channel is the close sentinel.
type Queue struct {
	events chan *core.ResearchEvent
	done   chan struct{}
}

// NewQueue opens a queue with the given buffer size and starts its dispatch
// task against callback.
func NewQueue(buffer int, callback Callback) *Queue {
	q := &Queue{
		events: make(chan *core.ResearchEvent, buffer),
		done:   make(chan struct{}),
	}
	go q.dispatch(callback)
	return q
}

// dispatch awaits events and invokes callback for each, stopping when it
// receives the nil close sentinel.
func (q *Queue) dispatch(callback Callback) {
	defer close(q.done)
	for ev := range q.events {
		if ev == nil {
			return
		}
		callback(*ev)
	}
}

// Emit enqueues an event, stamping its timestamp if unset.
func (q *Queue) Emit(ev core.ResearchEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	q.events <- &ev
}

// Close sends the close sentinel and waits for the dispatch task to drain
// and exit.
func (q *Queue) Close() {
	q.events <- nil
	<-q.done
}

// ProcessFn is the unit of work processWithStreaming runs between the
// bracketing init/complete events. It returns the final report string.
type ProcessFn func(ctx context.Context, q *Queue) (string, error)

// ProcessWithStreaming opens a queue, emits a bracketing "init" event, runs
// processFn, emits "complete", then a final "final_report" event carrying
// the result string (or "error" on failure), and closes the queue (spec
// §4.10). The registered callback may be sync or async; ProcessWithStreaming
// itself always waits for the queue to drain before returning.
func ProcessWithStreaming(ctx context.Context, step string, callback Callback, processFn ProcessFn) (string, error) {
	q := NewQueue(64, callback)
	defer q.Close()

	q.Emit(core.ResearchEvent{Type: core.EventProgress, Step: step, Data: "init"})

	result, err := processFn(ctx, q)

	if err != nil {
		q.Emit(core.ResearchEvent{Type: core.EventError, Step: step, Data: err.Error()})
		return "", err
	}

	q.Emit(core.ResearchEvent{Type: core.EventProgress, Step: step, Data: "complete"})
	q.Emit(core.ResearchEvent{Type: core.EventFinalReport, Step: step, Data: result})

	return result, nil
}
