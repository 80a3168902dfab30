package chi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/docassist/internal/db/memory"
	"github.com/kailas-cloud/docassist/internal/domain/stream/event"
	"github.com/kailas-cloud/docassist/internal/repository/history"
	"github.com/kailas-cloud/docassist/internal/repository/resultcache"
	"github.com/kailas-cloud/docassist/internal/transport/backend"
	"github.com/kailas-cloud/docassist/internal/transport/sse"
	"github.com/kailas-cloud/docassist/internal/transport/stream"
	chatuc "github.com/kailas-cloud/docassist/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/docassist/internal/usecase/health"
	searchuc "github.com/kailas-cloud/docassist/internal/usecase/search"
)

// fakeUpstream stands in for the document backend.
type fakeUpstream struct {
	searches    atomic.Int32
	searchReply func(w http.ResponseWriter, req backend.Request)
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case backend.DefaultSearchPath:
		f.searches.Add(1)
		var req backend.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if f.searchReply != nil {
			f.searchReply(w, req)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"query":"` + req.Query + `","results":[{"id":1,"subject":"Bridge inspection report"}],"total":1,"source":"hybrid"}`))
	case chatuc.DefaultRAGPath, chatuc.DefaultAgentPath:
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"type\":\"thinking\",\"step\":1,\"content\":\"looking\"}\n\n"))
		_, _ = w.Write([]byte("data: {\"type\":\"sources\",\"sources\":[{\"document_id\":1,\"subject\":\"s\"}],\"retrieved_count\":1}\n\n"))
		_, _ = w.Write([]byte("data: {\"type\":\"token\",\"content\":\"Due \"}\n\n"))
		_, _ = w.Write([]byte("data: {\"type\":\"token\",\"content\":\"Friday\"}\n\n"))
		_, _ = w.Write([]byte("data: {\"type\":\"done\",\"latency_ms\":12,\"model\":\"m\"}\n\n"))
	default:
		http.NotFound(w, r)
	}
}

type gateway struct {
	srv      *httptest.Server
	upstream *fakeUpstream
	cache    *resultcache.Cache
	server   *Server
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	up := &fakeUpstream{}
	upSrv := httptest.NewServer(up)
	t.Cleanup(upSrv.Close)

	bc, err := backend.New(backend.Config{BaseURL: upSrv.URL})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	sc, err := stream.New(stream.Config{BaseURL: upSrv.URL})
	if err != nil {
		t.Fatalf("stream.New: %v", err)
	}
	cache := resultcache.New(resultcache.DefaultTTL, nil, nil)
	hist := history.New(memory.NewSlot(), history.DefaultCapacity, nil)

	s := NewServer(Deps{
		Clients: ClientFactory{
			Search: func() *searchuc.Orchestrator { return searchuc.New(bc, cache, hist, searchuc.Config{}, nil) },
			Chat:   func() *chatuc.Service { return chatuc.New(sc, chatuc.Config{}, nil) },
		},
		History: hist,
		Cache:   cache,
		Health:  healthuc.New(nil),
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &gateway{srv: srv, upstream: up, cache: cache, server: s}
}

func (g *gateway) do(t *testing.T, method, path, clientID string, body any) *http.Response {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, g.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if clientID != "" {
		req.Header.Set(ClientIDHeader, clientID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

// readEvents decodes a relayed SSE body into events.
func readEvents(t *testing.T, body io.Reader) []event.Event {
	t.Helper()
	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	dec := sse.NewDecoder()
	router := sse.NewRouter(nil, nil)
	var out []event.Event
	for _, frame := range dec.Feed(raw) {
		if ev, ok := router.Decode(frame); ok {
			out = append(out, ev)
		}
	}
	return out
}
