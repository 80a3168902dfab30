package sse

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/stream/event"
)

// doneSentinel is the OpenAI-style end marker some proxies append.
const doneSentinel = "[DONE]"

// Callbacks receives routed events. Nil callbacks are skipped.
type Callbacks struct {
	OnThinking   func(event.Thinking)
	OnToolCall   func(event.ToolCall)
	OnToolResult func(event.ToolResult)
	OnSources    func(event.SourcesReady)
	OnToken      func(event.TokenChunk)
	OnDone       func(event.Completed)
	OnError      func(event.Failed)
}

// Dispatch invokes the callback registered for ev's kind.
func (cb Callbacks) Dispatch(ev event.Event) {
	switch e := ev.(type) {
	case event.Thinking:
		if cb.OnThinking != nil {
			cb.OnThinking(e)
		}
	case event.ToolCall:
		if cb.OnToolCall != nil {
			cb.OnToolCall(e)
		}
	case event.ToolResult:
		if cb.OnToolResult != nil {
			cb.OnToolResult(e)
		}
	case event.SourcesReady:
		if cb.OnSources != nil {
			cb.OnSources(e)
		}
	case event.TokenChunk:
		if cb.OnToken != nil {
			cb.OnToken(e)
		}
	case event.Completed:
		if cb.OnDone != nil {
			cb.OnDone(e)
		}
	case event.Failed:
		if cb.OnError != nil {
			cb.OnError(e)
		}
	}
}

// wireFrame is the union of every field any event kind may carry.
type wireFrame struct {
	Type           string            `json:"type"`
	Step           int               `json:"step"`
	Content        string            `json:"content"`
	Text           string            `json:"text"`
	Tool           string            `json:"tool"`
	Params         map[string]any    `json:"params"`
	Summary        string            `json:"summary"`
	ResultCount    int               `json:"result_count"`
	Sources        []event.SourceRef `json:"sources"`
	RetrievedCount int               `json:"retrieved_count"`
	LatencyMs      float64           `json:"latency_ms"`
	Model          string            `json:"model"`
	ToolsUsed      []string          `json:"tools_used"`
	Iterations     int               `json:"iterations"`
	Message        string            `json:"message"`
	Error          string            `json:"error"`
	Code           string            `json:"code"`
}

func (w *wireFrame) text() string {
	if w.Content != "" {
		return w.Content
	}
	return w.Text
}

// Router turns raw frame payloads into typed events.
type Router struct {
	logger    *zap.Logger
	malformed prometheus.Counter
}

// NewRouter creates a router. malformed may be nil.
func NewRouter(logger *zap.Logger, malformed prometheus.Counter) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{logger: logger, malformed: malformed}
}

// Parse decodes one frame payload.
// It returns (nil, nil) for unknown discriminators and the end sentinel,
// and an error wrapping domain.ErrMalformedFrame for invalid JSON.
func (r *Router) Parse(frame string) (event.Event, error) {
	if frame == doneSentinel {
		return nil, nil
	}
	var w wireFrame
	if err := json.Unmarshal([]byte(frame), &w); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedFrame, err)
	}

	switch event.Kind(w.Type) {
	case event.KindThinking:
		return event.Thinking{StepIndex: w.Step, Text: w.text()}, nil
	case event.KindToolCall:
		params := w.Params
		if params == nil {
			params = map[string]any{}
		}
		return event.ToolCall{StepIndex: w.Step, ToolName: w.Tool, Params: params}, nil
	case event.KindToolResult:
		return event.ToolResult{
			StepIndex: w.Step, ToolName: w.Tool, Summary: w.Summary, ResultCount: w.ResultCount,
		}, nil
	case event.KindSources:
		sources := w.Sources
		if sources == nil {
			sources = []event.SourceRef{}
		}
		return event.SourcesReady{Sources: sources, RetrievedCount: w.RetrievedCount}, nil
	case event.KindToken:
		return event.TokenChunk{Text: w.text()}, nil
	case event.KindDone:
		tools := w.ToolsUsed
		if tools == nil {
			tools = []string{}
		}
		return event.Completed{
			LatencyMs: int(w.LatencyMs), ModelName: w.Model, ToolsUsed: tools, Iterations: w.Iterations,
		}, nil
	case event.KindError:
		msg := w.Message
		if msg == "" {
			msg = w.Error
		}
		return event.Failed{Message: msg, Code: w.Code}, nil
	default:
		return nil, nil
	}
}

// Route parses frame and dispatches it to cb.
// It reports the routed event, or false when the frame was skipped.
func (r *Router) Route(frame string, cb Callbacks) (event.Event, bool) {
	ev, ok := r.Decode(frame)
	if !ok {
		return nil, false
	}
	cb.Dispatch(ev)
	return ev, true
}

// Decode parses frame, logging and counting malformed payloads instead of returning them.
func (r *Router) Decode(frame string) (event.Event, bool) {
	ev, err := r.Parse(frame)
	if err != nil {
		r.logger.Warn("Skipping malformed stream frame",
			zap.Int("frame_bytes", len(frame)),
			zap.Error(err),
		)
		if r.malformed != nil {
			r.malformed.Inc()
		}
		return nil, false
	}
	if ev == nil {
		return nil, false
	}
	return ev, true
}
