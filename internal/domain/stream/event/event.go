// Package event defines the typed application events carried by an AI answer stream.
package event

// Kind is the wire discriminator of a stream event.
type Kind string

// Wire discriminators.
const (
	KindThinking   Kind = "thinking"
	KindToolCall   Kind = "tool_call"
	KindToolResult Kind = "tool_result"
	KindSources    Kind = "sources"
	KindToken      Kind = "token"
	KindDone       Kind = "done"
	KindError      Kind = "error"
)

// IsValid checks if the kind is one of the known discriminators.
func (k Kind) IsValid() bool {
	switch k {
	case KindThinking, KindToolCall, KindToolResult, KindSources, KindToken, KindDone, KindError:
		return true
	}
	return false
}

// Event is one decoded stream event.
type Event interface {
	Kind() Kind
}

// Thinking is an agent reasoning step.
type Thinking struct {
	StepIndex int    `json:"step"`
	Text      string `json:"content"`
}

// ToolCall announces a tool invocation by the agent.
type ToolCall struct {
	StepIndex int            `json:"step"`
	ToolName  string         `json:"tool"`
	Params    map[string]any `json:"params"`
}

// ToolResult reports the outcome of a tool invocation.
type ToolResult struct {
	StepIndex   int    `json:"step"`
	ToolName    string `json:"tool"`
	Summary     string `json:"summary"`
	ResultCount int    `json:"result_count"`
}

// SourceRef is one retrieved document cited by the answer.
type SourceRef struct {
	DocumentID int64   `json:"document_id"`
	Subject    string  `json:"subject"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
	Attachment string  `json:"attachment,omitempty"`
}

// SourcesReady lists the documents retrieved for the answer.
type SourcesReady struct {
	Sources        []SourceRef `json:"sources"`
	RetrievedCount int         `json:"retrieved_count"`
}

// TokenChunk is an incremental piece of the answer text.
type TokenChunk struct {
	Text string `json:"content"`
}

// Completed closes a successful stream.
type Completed struct {
	LatencyMs  int      `json:"latency_ms"`
	ModelName  string   `json:"model"`
	ToolsUsed  []string `json:"tools_used"`
	Iterations int      `json:"iterations"`
}

// Failed closes a stream with an error.
type Failed struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (Thinking) Kind() Kind     { return KindThinking }
func (ToolCall) Kind() Kind     { return KindToolCall }
func (ToolResult) Kind() Kind   { return KindToolResult }
func (SourcesReady) Kind() Kind { return KindSources }
func (TokenChunk) Kind() Kind   { return KindToken }
func (Completed) Kind() Kind    { return KindDone }
func (Failed) Kind() Kind       { return KindError }

// IsTerminal reports whether e ends a stream.
func IsTerminal(e Event) bool {
	if e == nil {
		return false
	}
	k := e.Kind()
	return k == KindDone || k == KindError
}
