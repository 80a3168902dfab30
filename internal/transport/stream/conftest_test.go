package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/docassist/internal/domain/stream/event"
	"github.com/kailas-cloud/docassist/internal/transport/sse"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(context.Context) (string, error) { return s.token, s.err }

// recorder captures every routed event in delivery order.
// Reads are safe after Handle.Wait returns.
type recorder struct {
	events []event.Event
}

func (r *recorder) callbacks() sse.Callbacks {
	add := func(ev event.Event) { r.events = append(r.events, ev) }
	return sse.Callbacks{
		OnThinking:   func(e event.Thinking) { add(e) },
		OnToolCall:   func(e event.ToolCall) { add(e) },
		OnToolResult: func(e event.ToolResult) { add(e) },
		OnSources:    func(e event.SourcesReady) { add(e) },
		OnToken:      func(e event.TokenChunk) { add(e) },
		OnDone:       func(e event.Completed) { add(e) },
		OnError:      func(e event.Failed) { add(e) },
	}
}

func (r *recorder) kinds() []event.Kind {
	out := make([]event.Kind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind())
	}
	return out
}

func (r *recorder) count(k event.Kind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind() == k {
			n++
		}
	}
	return n
}

// chunkedHandler writes each chunk separately and flushes between them.
func chunkedHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		f, _ := w.(http.Flusher)
		for _, c := range chunks {
			_, _ = w.Write([]byte(c))
			if f != nil {
				f.Flush()
			}
		}
	}
}

func newTestClient(t *testing.T, h http.Handler, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Tokens: tokens})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func waitDone(t *testing.T, h *Handle) State {
	t.Helper()
	select {
	case <-h.Done():
		return h.State()
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
		return StateActive
	}
}
