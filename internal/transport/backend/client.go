// Package backend calls the document backend's natural-language search endpoint.
package backend

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
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/domain"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
	"github.com/kailas-cloud/docassist/internal/metrics"
)

// DefaultSearchPath is the natural-language search endpoint.
const DefaultSearchPath = "/api/search/natural"

const maxErrorBody = 64 << 10

type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Request is the search request body.
type Request struct {
	Query              string `json:"query"`
	MaxResults         int    `json:"max_results"`
	IncludeAttachments bool   `json:"include_attachments"`
	Offset             int    `json:"offset"`
}

// Response is the search response body.
type Response struct {
	Success bool          `json:"success"`
	Query   string        `json:"query"`
	Intent  result.Intent `json:"-"`
	Results []result.Item `json:"results"`
	Total   int           `json:"total"`
	Source  string        `json:"source"`
	Error   string        `json:"error,omitempty"`

	RawIntent json.RawMessage `json:"parsed_intent,omitempty"`
}

// Config holds backend client settings.
type Config struct {
	BaseURL    string
	SearchPath string
	HTTPClient *http.Client
	Tokens     tokenSource
	Logger     *zap.Logger
}

// Client is a natural-language search client.
type Client struct {
	endpoint string
	http     *http.Client
	tokens   tokenSource
	logger   *zap.Logger
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	path := cfg.SearchPath
	if path == "" {
		path = DefaultSearchPath
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse search path: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint: base.ResolveReference(ref).String(),
		http:     hc,
		tokens:   cfg.Tokens,
		logger:   log,
	}, nil
}

// Search posts req and decodes the backend response.
//
// Errors: a cancelled ctx yields its cause (see context.Cause); a non-2xx status
// yields *domain.HTTPError; connection failures wrap domain.ErrTransportFailed.
// A 2xx response with success=false is returned as-is with a nil error.
func (c *Client) Search(ctx context.Context, req Request) (Response, error) {
	page := "fresh"
	if req.Offset > 0 {
		page = "more"
	}
	start := time.Now()
	defer func() {
		metrics.SearchBackendDuration.WithLabelValues(page).Observe(time.Since(start).Seconds())
	}()

	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal search request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return Response{}, fmt.Errorf("load token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, c.transportErr(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if ctx.Err() != nil {
			return Response{}, fmt.Errorf("search request: %w", context.Cause(ctx))
		}
		c.logger.Warn("Search backend rejected request",
			zap.Int("status", resp.StatusCode),
			zap.Int("offset", req.Offset),
		)
		return Response{}, domain.NewHTTPError(resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return Response{}, fmt.Errorf("search request: %w", context.Cause(ctx))
		}
		return Response{}, fmt.Errorf("%w: decode search response: %w", domain.ErrBackendRejected, err)
	}
	out.Intent = decodeIntent(out.RawIntent)
	return out, nil
}

func (c *Client) transportErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("search request: %w", context.Cause(ctx))
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	c.logger.Warn("Search backend unreachable", zap.Error(err))
	return fmt.Errorf("%w: %w", domain.ErrTransportFailed, err)
}

// decodeIntent reads the typed filters it recognises and keeps the whole object in Raw.
// A parsed_intent whose fields have unexpected types only populates Raw.
func decodeIntent(raw json.RawMessage) result.Intent {
	if len(raw) == 0 || string(raw) == "null" {
		return result.Intent{}
	}
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return result.Intent{}
	}
	var typed result.Intent
	if err := json.Unmarshal(raw, &typed); err != nil {
		typed = result.Intent{}
	}
	typed.Raw = all
	return typed
}
