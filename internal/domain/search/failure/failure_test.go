package failure

import (
	"testing"

	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		r    result.Result
		want Kind
	}{
		{"success", result.Result{Success: true}, None},
		{"validation", result.Failure("", 0, result.CategoryValidation, "query is blank"), Validation},
		{"in flight", result.Failure("q", 20, result.CategoryInFlight, ""), Busy},
		{"cancelled", result.Failure("q", 0, result.CategoryCancelled, ""), Cancelled},
		{"timeout", result.Failure("q", 0, result.CategoryTimedOut, ""), Timeout},
		{"rate limited", result.Failure("q", 0, result.CategoryBackend, "Rate limit exceeded"), RateLimited},
		{"429 body", result.Failure("q", 0, result.CategoryBackend, "HTTP 429"), RateLimited},
		{"ai down", result.Failure("q", 0, result.CategoryBackend, "AI service unavailable"), AIUnavailable},
		{"transport", result.Failure("q", 0, result.CategoryTransport, "dial tcp: connection refused"), Generic},
		{"generic backend error", result.Failure("q", 0, result.CategoryBackend, "boom"), Generic},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.r); got != tc.want {
				t.Errorf("Classify() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClassify_CategoryBeatsMessage(t *testing.T) {
	r := result.Failure("q", 0, result.CategoryTimedOut, "rate limit")
	if got := Classify(r); got != Timeout {
		t.Errorf("Classify() = %q, want %q", got, Timeout)
	}
}

func TestKind_IsSoft(t *testing.T) {
	if !Timeout.IsSoft() || !Cancelled.IsSoft() || !Busy.IsSoft() {
		t.Error("timeout, cancelled and busy are soft")
	}
	if Generic.IsSoft() || RateLimited.IsSoft() || AIUnavailable.IsSoft() {
		t.Error("backend failures are hard")
	}
}
