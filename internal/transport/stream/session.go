// Package stream runs one streaming AI request per Handle: it posts a JSON body,
// decodes the server-sent frames and routes them to callbacks until a terminal event.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/stream/event"
	"github.com/kailas-cloud/docassist/internal/metrics"
	"github.com/kailas-cloud/docassist/internal/transport/sse"
)

const readBufferSize = 32 * 1024

// TokenSource supplies the bearer credential. An empty token means no header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds stream client settings.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *zap.Logger
}

// Client starts streaming sessions against one backend.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	logger *zap.Logger
	router *sse.Router
}

// New creates a stream client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		// No client-level timeout: sessions are bounded by their own deadline.
		hc = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base:   base,
		http:   hc,
		tokens: cfg.Tokens,
		logger: log,
		router: sse.NewRouter(log, metrics.StreamFramesMalformed.WithLabelValues(metrics.FrameInvalidJSON)),
	}, nil
}

// Start opens a session and returns immediately. Events are delivered on a
// session goroutine in wire order. timeout <= 0 disables the deadline.
func (c *Client) Start(ctx context.Context, path string, body any, cb sse.Callbacks, timeout time.Duration) *Handle {
	sctx, cancel := context.WithCancelCause(ctx)
	h := &Handle{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if timeout > 0 {
		// The callback may fire before Store; stopTimer then sees nil and the timer has already run.
		h.timer.Store(time.AfterFunc(timeout, func() { h.cancelWith(domain.ErrTimedOut) }))
	}
	go c.run(sctx, h, path, body, cb)
	return h
}

func (c *Client) run(ctx context.Context, h *Handle, path string, body any, cb sse.Callbacks) {
	start := time.Now()
	log := c.logger.With(zap.String("session_id", h.id), zap.String("path", path))
	defer func() {
		h.stopTimer()
		h.cancel(nil)
		state := h.State().String()
		metrics.StreamSessionsTotal.WithLabelValues(state).Inc()
		metrics.StreamSessionDuration.WithLabelValues(state).Observe(time.Since(start).Seconds())
		log.Debug("Stream session finished", zap.String("state", state), zap.Duration("elapsed", time.Since(start)))
		close(h.done)
	}()

	req, err := c.newRequest(ctx, path, body)
	if err != nil {
		h.finish(cb, event.Failed{Message: err.Error(), Code: "request"})
		return
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.transportError(ctx, h, cb, log, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, rerr := io.ReadAll(resp.Body)
		if rerr != nil && ctx.Err() != nil {
			h.cancelWith(context.Cause(ctx))
			return
		}
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		h.finish(cb, event.Failed{Message: msg, Code: fmt.Sprintf("http_%d", resp.StatusCode)})
		return
	}

	dec := sse.NewDecoder()
	buf := make([]byte, readBufferSize)
	dropped := 0
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			frames := dec.Feed(buf[:n])
			dropped = reportDropped(log, dec, dropped)
			for _, frame := range frames {
				if h.deliver(c.router, frame, cb) {
					return
				}
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			c.transportError(ctx, h, cb, log, rerr)
			return
		}
	}

	if frame, ok := dec.Flush(); ok {
		if h.deliver(c.router, frame, cb) {
			return
		}
	}
	// Stream ended without a terminal frame.
	h.finish(cb, event.Completed{ToolsUsed: []string{}})
}

// reportDropped logs and counts frames the decoder discarded since seen, returning the new total.
func reportDropped(log *zap.Logger, dec *sse.Decoder, seen int) int {
	total := dec.Dropped()
	if n := total - seen; n > 0 {
		log.Warn("Skipping oversized stream frame",
			zap.Int("frames", n),
			zap.Int("max_frame_bytes", sse.MaxFrameSize),
		)
		metrics.StreamFramesMalformed.WithLabelValues(metrics.FrameOversized).Add(float64(n))
	}
	return total
}

func (c *Client) newRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.ResolveReference(ref).String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("load token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// transportError reports a read or connect failure unless the session was cancelled.
func (c *Client) transportError(ctx context.Context, h *Handle, cb sse.Callbacks, log *zap.Logger, err error) {
	if h.State() != StateActive {
		return
	}
	if ctx.Err() != nil {
		h.cancelWith(context.Cause(ctx))
		return
	}
	log.Warn("Stream transport failed", zap.Error(err))

	msg := err.Error()
	var uerr *url.Error
	if errors.As(err, &uerr) {
		msg = uerr.Err.Error()
	}
	h.finish(cb, event.Failed{Message: msg, Code: "transport"})
}

// State is the lifecycle position of a session.
type State int32

// Session states. Every state but Active is final.
const (
	StateActive State = iota
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handle controls one streaming session.
type Handle struct {
	id     string
	cancel context.CancelCauseFunc
	timer  atomic.Pointer[time.Timer]
	state  atomic.Int32
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// ID returns the session identifier.
func (h *Handle) ID() string { return h.id }

// State returns the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Done is closed once the session goroutine has released the connection.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the session ends and returns its final state.
func (h *Handle) Wait() State {
	<-h.done
	return h.State()
}

// Err returns the cancellation cause or the failure, nil while active or after completion.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Cancel aborts the session silently. Idempotent; a no-op once a terminal event was delivered.
// A callback already running on the session goroutine may still finish.
func (h *Handle) Cancel() { h.cancelWith(domain.ErrCancelled) }

// CancelCause aborts the session with a specific cause such as domain.ErrSuperseded.
func (h *Handle) CancelCause(cause error) { h.cancelWith(cause) }

func (h *Handle) cancelWith(cause error) {
	if !h.state.CompareAndSwap(int32(StateActive), int32(StateCancelled)) {
		return
	}
	h.setErr(cause)
	h.stopTimer()
	h.cancel(cause)
}

func (h *Handle) stopTimer() {
	if t := h.timer.Load(); t != nil {
		t.Stop()
	}
}

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

// finish delivers the single terminal event if the session is still active.
func (h *Handle) finish(cb sse.Callbacks, ev event.Event) bool {
	target := StateCompleted
	f, failed := ev.(event.Failed)
	if failed {
		target = StateFailed
	}
	if !h.state.CompareAndSwap(int32(StateActive), int32(target)) {
		return false
	}
	if failed {
		h.setErr(errors.New(f.Message))
	}
	h.stopTimer()
	cb.Dispatch(ev)
	return true
}

// deliver routes one frame and reports whether the session must stop reading.
func (h *Handle) deliver(r *sse.Router, frame string, cb sse.Callbacks) bool {
	if h.State() != StateActive {
		return true
	}
	ev, ok := r.Decode(frame)
	if !ok {
		return false
	}
	if event.IsTerminal(ev) {
		h.finish(cb, ev)
		return true
	}
	cb.Dispatch(ev)
	return false
}
