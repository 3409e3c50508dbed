// Package core holds the data model shared across the deep research
// pipeline (spec §3): Request/Response, the per-request ProcessingContext,
// and the record types handed between stages.
package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mode is the closed set of processing modes a Request can carry.
type Mode string

const (
	ModeAuto         Mode = "auto"
	ModeChat         Mode = "chat"
	ModeKnowledge    Mode = "knowledge"
	ModeSearch       Mode = "search"
	ModeCode         Mode = "code"
	ModeThinking     Mode = "thinking"
	ModeDeepResearch Mode = "deepResearch"
)

// CognitiveLevel is the coarse depth/resource classifier carried as data on
// each Mode — never looked up externally (Design Note, Glossary).
type CognitiveLevel string

const (
	System1 CognitiveLevel = "system1"
	System2 CognitiveLevel = "system2"
	Agent   CognitiveLevel = "agent"
)

// cognitiveLevels maps each mode to its cognitive level. Self-contained data,
// not an external lookup table consulted at routing time by anything other
// than this map.
var cognitiveLevels = map[Mode]CognitiveLevel{
	ModeChat:         System1,
	ModeKnowledge:    System1,
	ModeSearch:       System2,
	ModeCode:         System2,
	ModeThinking:     System2,
	ModeDeepResearch: Agent,
}

// CognitiveLevel returns the cognitive level data-tagged to this mode.
// ModeAuto has no level of its own; it resolves to one only after routing.
func (m Mode) CognitiveLevel() CognitiveLevel {
	if lvl, ok := cognitiveLevels[m]; ok {
		return lvl
	}
	return System1
}

// Request is the immutable (post-entry) unit of work handed to the pipeline.
// Invariant 1 (spec §3): once the orchestrator begins, Query and Mode are
// never mutated.
type Request struct {
	Query       string
	Mode        Mode
	TraceID     string
	ContextID   string
	Temperature float64
	MaxTokens   int
	Streaming   bool
	Metadata    map[string]any
}

// NewRequest builds a Request with a generated TraceID when one isn't
// supplied.
func NewRequest(query string, mode Mode) *Request {
	return &Request{
		Query:    query,
		Mode:     mode,
		TraceID:  uuid.NewString(),
		Metadata: make(map[string]any),
	}
}

// TraceID8 returns the first 8 characters of the trace id, used to name
// on-disk artefact directories (spec §3, §6).
func (r *Request) TraceID8() string {
	if len(r.TraceID) >= 8 {
		return r.TraceID[:8]
	}
	return r.TraceID
}

// EventType is the closed SSE event-type set from spec §6.
type EventType string

const (
	EventProgress     EventType = "progress"
	EventMessage      EventType = "message"
	EventReasoning    EventType = "reasoning"
	EventSearchResult EventType = "search_result"
	EventError        EventType = "error"
	EventFinalReport  EventType = "final_report"
)

// ResearchEvent is one entry in the Response's ordered event sequence
// (spec §3, §6).
type ResearchEvent struct {
	Type      EventType `json:"type"`
	Step      string    `json:"step"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Response is the pipeline's output record.
type Response struct {
	Result     string
	Mode       Mode
	TraceID    string
	TokensUsed int
	TimeMs     int64
	CostUSD    float64
	Metadata   map[string]any
	Events     []ResearchEvent
}

// NewResponse creates an empty response for the given request.
func NewResponse(req *Request) *Response {
	return &Response{
		Mode:     req.Mode,
		TraceID:  req.TraceID,
		Metadata: make(map[string]any),
	}
}

// AppendEvent appends an event to the response's ordered sequence. It takes
// no lock; concurrent callers go through ProcessingContext.Emit, which
// serializes appends.
func (r *Response) AppendEvent(ev ResearchEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	r.Events = append(r.Events, ev)
}

// ProcessingContext is the shared, single-writer scratchpad for one request
// (spec §3 invariant 6: exclusively owned by the orchestrator; helpers
// receive it by non-owning reference and may only append to
// response.Metadata / response.Events).
type ProcessingContext struct {
	mu sync.Mutex

	Request         *Request
	Response        *Response
	CurrentStep     string
	StepsCompleted  []string
	StartTime       time.Time
	TotalTokens     int
	Intermediate    map[string]any
}

// NewProcessingContext creates a context bound to one request, born at
// orchestrator entry.
func NewProcessingContext(req *Request) *ProcessingContext {
	return &ProcessingContext{
		Request:      req,
		Response:     NewResponse(req),
		StartTime:    time.Now(),
		Intermediate: make(map[string]any),
	}
}

// SetStep records the current pipeline step and appends it to the completed
// list — called only by the orchestrator (single writer).
func (c *ProcessingContext) SetStep(step string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentStep = step
	c.StepsCompleted = append(c.StepsCompleted, step)
}

// AddTokens accumulates token usage monotonically; the only shared mutable
// counter in the core (spec §5: no locks required elsewhere, this one is
// guarded since helpers may report usage from concurrent goroutines).
func (c *ProcessingContext) AddTokens(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TotalTokens += n
	c.Response.TokensUsed += n
}

// Emit appends an event to the response, safe for concurrent helper calls.
func (c *ProcessingContext) Emit(ev ResearchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Response.AppendEvent(ev)
}

// SetMetadata safely sets a key on response.Metadata.
func (c *ProcessingContext) SetMetadata(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Response.Metadata[key] = val
}
