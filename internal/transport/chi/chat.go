package chi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domchat "github.com/kailas-cloud/docassist/internal/domain/chat"
	"github.com/kailas-cloud/docassist/internal/domain/stream/event"
	"github.com/kailas-cloud/docassist/internal/logger"
	"github.com/kailas-cloud/docassist/internal/transport/sse"
)

type chatRequest struct {
	Question string `json:"question"`
}

type chatTurnsResponse struct {
	Turns []domchat.Turn `json:"turns"`
}

// Chat handles POST /v1/chat/{mode}: it relays the answer stream as server-sent events.
// The session lives as long as the request; a client disconnect cancels it.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	mode, err := domchat.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "question is required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, CodeInternalError, "streaming unsupported")
		return
	}

	log := logger.FromContext(r.Context())
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Frames are written only from the session goroutine while this handler waits.
	emit := func(ev event.Event) {
		frame, err := sse.MarshalFrame(ev)
		if err != nil {
			log.Error("Failed to encode chat event", zap.Error(err))
			return
		}
		if _, err := w.Write(frame); err != nil {
			return
		}
		flusher.Flush()
	}

	c := s.clients.get(clientID(r))
	h, err := c.chat.Ask(r.Context(), mode, req.Question, relay(emit))
	if err != nil {
		s.handleStreamError(emit, err)
		return
	}
	<-h.Done()
	log.Debug("Chat relay finished",
		zap.String("session_id", h.ID()),
		zap.String("state", h.State().String()),
	)
}

func (s *Server) handleStreamError(emit func(event.Event), err error) {
	s.logger.Warn("chat request rejected", zap.Error(err))
	emit(event.Failed{Message: err.Error(), Code: "bad_request"})
}

// relay forwards every event kind to emit.
func relay(emit func(event.Event)) sse.Callbacks {
	return sse.Callbacks{
		OnThinking:   func(e event.Thinking) { emit(e) },
		OnToolCall:   func(e event.ToolCall) { emit(e) },
		OnToolResult: func(e event.ToolResult) { emit(e) },
		OnSources:    func(e event.SourcesReady) { emit(e) },
		OnToken:      func(e event.TokenChunk) { emit(e) },
		OnDone:       func(e event.Completed) { emit(e) },
		OnError:      func(e event.Failed) { emit(e) },
	}
}

// ChatTurns handles GET /v1/chat.
func (s *Server) ChatTurns(w http.ResponseWriter, r *http.Request) {
	turns := s.clients.get(clientID(r)).chat.Turns()
	if turns == nil {
		turns = []domchat.Turn{}
	}
	writeJSON(w, http.StatusOK, chatTurnsResponse{Turns: turns})
}

// ResetChat handles DELETE /v1/chat.
func (s *Server) ResetChat(w http.ResponseWriter, r *http.Request) {
	s.clients.get(clientID(r)).chat.Reset()
	w.WriteHeader(http.StatusNoContent)
}
