package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/docassist/internal/domain"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, error) { return string(s), nil }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Tokens: staticTokens("tok")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSearch_Success(t *testing.T) {
	var got Request
	var gotAuth, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{
			"success": true,
			"query": "bridge inspection",
			"parsed_intent": {"keywords": ["bridge", "inspection"], "vendor": "ACME", "confidence": 0.8},
			"results": [{"id": 1, "subject": "Bridge inspection report", "attachments": [{"id": 7, "file_name": "r.pdf"}]}],
			"total": 1,
			"source": "hybrid"
		}`))
	})

	resp, err := c.Search(context.Background(), Request{Query: "bridge inspection", MaxResults: 20, IncludeAttachments: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotPath != DefaultSearchPath {
		t.Errorf("path = %q, want %q", gotPath, DefaultSearchPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if got.Query != "bridge inspection" || got.MaxResults != 20 || !got.IncludeAttachments || got.Offset != 0 {
		t.Errorf("request body = %+v", got)
	}
	if !resp.Success || resp.Total != 1 || len(resp.Results) != 1 || resp.Results[0].ID != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if len(resp.Results[0].Attachments) != 1 || resp.Results[0].Attachments[0].FileName != "r.pdf" {
		t.Errorf("attachments = %+v", resp.Results[0].Attachments)
	}
	if resp.Intent.Vendor != "ACME" || len(resp.Intent.Keywords) != 2 {
		t.Errorf("intent = %+v", resp.Intent)
	}
	if resp.Intent.Raw["confidence"] != 0.8 {
		t.Errorf("raw intent = %v", resp.Intent.Raw)
	}
}

func TestSearch_UnsuccessfulBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "error": "AI service unavailable"}`))
	})

	resp, err := c.Search(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Success || resp.Error != "AI service unavailable" {
		t.Errorf("response = %+v", resp)
	}
}

func TestSearch_IntentWithUnexpectedTypes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "parsed_intent": {"keywords": "bridge"}, "results": []}`))
	})

	resp, err := c.Search(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Intent.Keywords) != 0 {
		t.Errorf("keywords = %v, want none", resp.Intent.Keywords)
	}
	if resp.Intent.Raw["keywords"] != "bridge" {
		t.Errorf("raw = %v", resp.Intent.Raw)
	}
}

func TestSearch_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"with body", http.StatusTooManyRequests, "rate limit exceeded\n", "rate limit exceeded"},
		{"empty body", http.StatusBadGateway, "", "HTTP 502"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.Search(context.Background(), Request{Query: "q"})
			if !errors.Is(err, domain.ErrBackendRejected) {
				t.Fatalf("err = %v, want ErrBackendRejected", err)
			}
			var herr *domain.HTTPError
			if !errors.As(err, &herr) || herr.Status != tc.status {
				t.Fatalf("err = %#v, want *HTTPError with status %d", err, tc.status)
			}
			if err.Error() != tc.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestSearch_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := c.Search(context.Background(), Request{Query: "q"})
	if !errors.Is(err, domain.ErrBackendRejected) {
		t.Fatalf("err = %v, want ErrBackendRejected", err)
	}
}

func TestSearch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Search(context.Background(), Request{Query: "q"})
	if !errors.Is(err, domain.ErrTransportFailed) {
		t.Fatalf("err = %v, want ErrTransportFailed", err)
	}
}

func TestSearch_CancelledContextReportsCause(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancelCause(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel(domain.ErrSuperseded)
	}()

	_, err := c.Search(ctx, Request{Query: "q"})
	if !errors.Is(err, domain.ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if errors.Is(err, domain.ErrTransportFailed) {
		t.Error("cancellation must not be reported as a transport failure")
	}
}

func TestSearch_DeadlineReportsTimedOut(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeoutCause(context.Background(), 20*time.Millisecond, domain.ErrTimedOut)
	defer cancel()

	_, err := c.Search(ctx, Request{Query: "q"})
	if !errors.Is(err, domain.ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{BaseURL: "backend:8080"}); err == nil {
		t.Error("expected error for base url without scheme")
	}
	c, err := New(Config{BaseURL: "http://backend:8080/", SearchPath: "/v2/search"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.endpoint != "http://backend:8080/v2/search" {
		t.Errorf("endpoint = %q", c.endpoint)
	}
}
