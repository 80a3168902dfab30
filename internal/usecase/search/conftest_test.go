package search

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/docassist/internal/db/memory"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
	"github.com/kailas-cloud/docassist/internal/repository/history"
	"github.com/kailas-cloud/docassist/internal/repository/resultcache"
	"github.com/kailas-cloud/docassist/internal/transport/backend"
)

// --- Mocks ---

type mockBackend struct {
	mu       sync.Mutex
	requests []backend.Request
	searchFn func(ctx context.Context, req backend.Request) (backend.Response, error)
	started  chan backend.Request
}

func (m *mockBackend) Search(ctx context.Context, req backend.Request) (backend.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn := m.searchFn
	m.mu.Unlock()

	if m.started != nil {
		m.started <- req
	}
	if fn == nil {
		return page(req.Query, req.Offset, 1, 1), nil
	}
	return fn(ctx, req)
}

func (m *mockBackend) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockBackend) request(i int) backend.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

// page builds a successful response with n items numbered from offset+1.
func page(q string, offset, n, total int) backend.Response {
	items := make([]result.Item, 0, n)
	for i := range n {
		id := int64(offset + i + 1)
		items = append(items, result.Item{ID: id, Subject: fmt.Sprintf("%s #%d", q, id)})
	}
	return backend.Response{Success: true, Query: q, Results: items, Total: total, Source: "hybrid"}
}

// blockUntilCancelled waits for ctx and reports its cause, like the real client.
func blockUntilCancelled(ctx context.Context, _ backend.Request) (backend.Response, error) {
	<-ctx.Done()
	return backend.Response{}, fmt.Errorf("search request: %w", context.Cause(ctx))
}

type fixture struct {
	orch    *Orchestrator
	backend *mockBackend
	cache   *resultcache.Cache
	history *history.Store
	now     time.Time
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		backend: &mockBackend{},
		now:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.cache = resultcache.New(resultcache.DefaultTTL, func() time.Time { return f.now }, nil)
	f.history = history.New(memory.NewSlot(), history.DefaultCapacity, nil)
	f.orch = New(f.backend, f.cache, f.history, cfg, nil)
	return f
}

// async runs Search in a goroutine and returns a channel with its result.
func (f *fixture) async(text string, offset int) <-chan result.Result {
	out := make(chan result.Result, 1)
	go func() { out <- f.orch.Search(context.Background(), text, offset) }()
	return out
}

func waitResult(t *testing.T, ch <-chan result.Result) result.Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("search did not settle")
		return result.Result{}
	}
}

func waitStarted(t *testing.T, ch <-chan backend.Request) backend.Request {
	t.Helper()
	select {
	case req := <-ch:
		return req
	case <-time.After(5 * time.Second):
		t.Fatal("backend request did not start")
		return backend.Request{}
	}
}
