// Package chat drives the RAG and Agent question-answering panel over streaming sessions.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	domchat "github.com/kailas-cloud/docassist/internal/domain/chat"
	"github.com/kailas-cloud/docassist/internal/domain/stream/event"
	"github.com/kailas-cloud/docassist/internal/transport/sse"
	"github.com/kailas-cloud/docassist/internal/transport/stream"
)

// Defaults for chat sessions.
const (
	DefaultRAGPath      = "/api/rag/stream"
	DefaultAgentPath    = "/api/agent/stream"
	DefaultHistoryTurns = 10
	DefaultTimeout      = 120 * time.Second
)

// Config tunes a Service.
type Config struct {
	RAGPath      string
	AgentPath    string
	HistoryTurns int
	Timeout      time.Duration
}

// Service keeps one conversation and at most one answer stream in flight.
type Service struct {
	streamer Streamer
	cfg      Config
	logger   *zap.Logger

	mu      sync.Mutex
	seq     uint64
	turns   []domchat.Turn
	current *stream.Handle
}

// New creates a chat service.
func New(s Streamer, cfg Config, logger *zap.Logger) *Service {
	if cfg.RAGPath == "" {
		cfg.RAGPath = DefaultRAGPath
	}
	if cfg.AgentPath == "" {
		cfg.AgentPath = DefaultAgentPath
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{streamer: s, cfg: cfg, logger: logger}
}

// Ask streams an answer to question. A previous answer still streaming is
// cancelled with domain.ErrSuperseded. When the answer completes, the question
// and the accumulated answer join the conversation history.
func (s *Service) Ask(ctx context.Context, mode domchat.Mode, question string, cb sse.Callbacks) (*stream.Handle, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrBlankQuery
	}
	path, err := s.path(mode)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.CancelCause(domain.ErrSuperseded)
	}
	s.seq++
	seq := s.seq

	req := domchat.Request{Question: question, History: s.recent()}

	var answer strings.Builder
	wrapped := cb
	wrapped.OnToken = func(e event.TokenChunk) {
		answer.WriteString(e.Text)
		if cb.OnToken != nil {
			cb.OnToken(e)
		}
	}
	wrapped.OnDone = func(e event.Completed) {
		s.complete(seq, question, answer.String())
		if cb.OnDone != nil {
			cb.OnDone(e)
		}
	}

	h := s.streamer.Start(ctx, path, req, wrapped, s.cfg.Timeout)
	s.current = h
	s.logger.Debug("Chat question sent",
		zap.String("session_id", h.ID()),
		zap.String("mode", string(mode)),
		zap.Int("history_turns", len(req.History)),
	)
	return h, nil
}

// Cancel aborts the answer currently streaming, if any.
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Cancel()
	}
}

// Reset cancels any answer in flight and forgets the conversation.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
	s.seq++
	s.turns = nil
}

// Turns returns a copy of the conversation so far.
func (s *Service) Turns() []domchat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domchat.Turn(nil), s.turns...)
}

func (s *Service) path(mode domchat.Mode) (string, error) {
	switch mode {
	case domchat.RAG, "":
		return s.cfg.RAGPath, nil
	case domchat.Agent:
		return s.cfg.AgentPath, nil
	default:
		return "", fmt.Errorf("unsupported chat mode: %q", mode)
	}
}

// recent returns the last HistoryTurns turns. Callers must hold s.mu.
func (s *Service) recent() []domchat.Turn {
	start := max(0, len(s.turns)-s.cfg.HistoryTurns)
	if start == len(s.turns) {
		return nil
	}
	return append([]domchat.Turn(nil), s.turns[start:]...)
}

// complete records a finished exchange unless a newer Ask or Reset happened since.
func (s *Service) complete(seq uint64, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return
	}
	s.turns = append(s.turns,
		domchat.Turn{Role: domchat.RoleUser, Content: question},
		domchat.Turn{Role: domchat.RoleAssistant, Content: answer},
	)
	s.current = nil
}
