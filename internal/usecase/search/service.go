// Package search drives natural-language search for one caller: single-flight
// with supersession, a deadline per request, result caching and load-more paging.
package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/search/query"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
	"github.com/kailas-cloud/docassist/internal/metrics"
	"github.com/kailas-cloud/docassist/internal/transport/backend"
)

// DefaultTimeout bounds one backend search.
const DefaultTimeout = 30 * time.Second

// Config tunes an Orchestrator.
type Config struct {
	PageSize           int
	Timeout            time.Duration
	IncludeAttachments bool
}

// flight is the request currently owned by the orchestrator.
type flight struct {
	gen    uint64
	key    string
	offset int
	cancel context.CancelCauseFunc
}

// Orchestrator owns at most one in-flight search. Only the most recently
// started request may change the displayed results.
type Orchestrator struct {
	backend Backend
	cache   Cache
	history History
	cfg     Config
	logger  *zap.Logger

	mu        sync.Mutex
	gen       uint64
	inflight  *flight
	displayed result.Result
	last      query.Query
	hasLast   bool
}

// New creates an orchestrator. Cache and history are usually the process-wide instances.
func New(b Backend, c Cache, h History, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = query.DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{backend: b, cache: c, history: h, cfg: cfg, logger: logger}
}

// Search runs a fresh search (offset 0) or a load-more page (offset > 0).
// It never returns an error; the outcome is described by the result category.
//
// While a search is in flight, a fresh search with different normalised text
// cancels it (that call settles as CategoryCancelled) and proceeds. A fresh
// search identical to the one in flight, or any load-more, returns
// CategoryInFlight without I/O and leaves the running search untouched.
func (o *Orchestrator) Search(ctx context.Context, text string, offset int) result.Result {
	q, err := query.New(text, offset, o.cfg.PageSize)
	if err != nil {
		return o.finish(q, result.Failure(text, offset, result.CategoryValidation, err.Error()), false)
	}

	o.mu.Lock()
	if r, busy := o.guard(q); busy {
		o.mu.Unlock()
		return o.finish(q, r, false)
	}

	o.gen++
	gen := o.gen

	if q.IsFresh() {
		if entry, ok := o.cache.Get(q.Text()); ok {
			r := entry.Result
			r.Offset = 0
			r.FromCache = true
			o.display(q, r)
			o.mu.Unlock()

			o.history.Add(ctx, q.Text())
			return o.finish(q, r, true)
		}
	}

	rctx, cancel := context.WithCancelCause(ctx)
	o.inflight = &flight{gen: gen, key: q.Key(), offset: q.Offset(), cancel: cancel}
	o.mu.Unlock()

	tctx, stop := context.WithTimeoutCause(rctx, o.cfg.Timeout, domain.ErrTimedOut)
	resp, err := o.backend.Search(tctx, backend.Request{
		Query:              q.Text(),
		MaxResults:         q.PageSize(),
		IncludeAttachments: o.cfg.IncludeAttachments,
		Offset:             q.Offset(),
	})
	stop()

	r, record := o.settle(gen, q, resp, err)
	cancel(nil)

	if record {
		o.history.Add(ctx, q.Text())
	}
	return o.finish(q, r, false)
}

// LoadMore fetches the page after the last one displayed.
func (o *Orchestrator) LoadMore(ctx context.Context) result.Result {
	o.mu.Lock()
	if !o.hasLast {
		o.mu.Unlock()
		return result.Failure("", 0, result.CategoryValidation, "no search to continue")
	}
	next := o.last.Next()
	o.mu.Unlock()

	return o.Search(ctx, next.Text(), next.Offset())
}

// Cancel aborts the in-flight search, if any. Its result is reported as cancelled
// and never reaches the displayed state.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inflight == nil {
		return
	}
	o.gen++
	o.inflight.cancel(domain.ErrCancelled)
	o.inflight = nil
}

// InFlight reports whether a backend request is running.
func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inflight != nil
}

// State returns a snapshot of the displayed results: the last fresh search plus any appended pages.
func (o *Orchestrator) State() result.Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := o.displayed
	r.Items = slices.Clone(r.Items)
	return r
}

// ClearCache drops every cached result.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
}

// guard applies the in-flight rules. Callers must hold o.mu.
//
// A load-more while anything is in flight is dropped, as is a fresh search
// identical to the one in flight. Any other fresh search supersedes it.
func (o *Orchestrator) guard(q query.Query) (result.Result, bool) {
	if !q.IsFresh() {
		if o.inflight != nil {
			return result.Failure(q.Text(), q.Offset(), result.CategoryInFlight, domain.ErrSearchInFlight.Error()), true
		}
		if !o.hasLast || o.last.Key() != q.Key() {
			return result.Failure(q.Text(), q.Offset(), result.CategoryValidation,
				"load more requires the same query to be displayed"), true
		}
		return result.Result{}, false
	}

	if f := o.inflight; f != nil {
		if f.offset == 0 && f.key == q.Key() {
			return result.Failure(q.Text(), 0, result.CategoryInFlight, domain.ErrSearchInFlight.Error()), true
		}
		o.logger.Debug("Superseding in-flight search",
			zap.Uint64("generation", f.gen),
			zap.Int("offset", f.offset),
		)
		f.cancel(domain.ErrSuperseded)
		o.inflight = nil
	}
	return result.Result{}, false
}

// settle turns a backend outcome into a result and applies it when gen is still current.
// It reports whether the query should be recorded in history.
func (o *Orchestrator) settle(gen uint64, q query.Query, resp backend.Response, err error) (result.Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inflight != nil && o.inflight.gen == gen {
		o.inflight = nil
	}

	if o.gen != gen {
		cause := domain.ErrSuperseded
		if errors.Is(err, domain.ErrCancelled) {
			cause = domain.ErrCancelled
		}
		return result.Failure(q.Text(), q.Offset(), result.CategoryCancelled, cause.Error()), false
	}
	if err != nil {
		return result.Failure(q.Text(), q.Offset(), categorize(err), o.message(err)), false
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "search was not successful"
		}
		return result.Failure(q.Text(), q.Offset(), result.CategoryBackend, msg), false
	}

	items := resp.Results
	if items == nil {
		items = []result.Item{}
	}
	r := result.Result{
		Success: true,
		Query:   q.Text(),
		Offset:  q.Offset(),
		Intent:  resp.Intent,
		Items:   items,
		Total:   resp.Total,
		Source:  resp.Source,
	}

	if q.IsFresh() {
		o.display(q, r)
		o.cache.Put(q.Text(), r)
		return r, true
	}

	o.displayed.Items = append(slices.Clone(o.displayed.Items), items...)
	o.displayed.Total = resp.Total
	o.last = q
	return r, false
}

// display replaces the displayed state. Callers must hold o.mu.
func (o *Orchestrator) display(q query.Query, r result.Result) {
	r.Items = slices.Clone(r.Items)
	o.displayed = r
	o.last = q
	o.hasLast = true
}

func (o *Orchestrator) message(err error) string {
	if errors.Is(err, domain.ErrTimedOut) {
		return fmt.Sprintf("search timed out after %s", o.cfg.Timeout)
	}
	var herr *domain.HTTPError
	if errors.As(err, &herr) {
		return herr.Error()
	}
	return err.Error()
}

func categorize(err error) result.Category {
	switch {
	case errors.Is(err, domain.ErrTimedOut), errors.Is(err, context.DeadlineExceeded):
		return result.CategoryTimedOut
	case domain.IsCancellation(err), errors.Is(err, context.Canceled):
		return result.CategoryCancelled
	case errors.Is(err, domain.ErrBackendRejected):
		return result.CategoryBackend
	default:
		return result.CategoryTransport
	}
}

func (o *Orchestrator) finish(q query.Query, r result.Result, cached bool) result.Result {
	page := "fresh"
	if q.Offset() > 0 || r.Offset > 0 {
		page = "more"
	}
	outcome := string(r.Category)
	switch {
	case cached:
		outcome = "cache_hit"
	case r.Success:
		outcome = "success"
	}
	metrics.SearchRequestsTotal.WithLabelValues(page, outcome).Inc()
	return r
}
