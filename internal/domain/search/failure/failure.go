// Package failure maps search outcomes to a presentation category.
//
// The orchestrator only reports a structured category and the raw backend
// message. Callers that render failures (the gateway, the CLI) use Classify
// to pick between a soft warning and a hard error.
package failure

import (
	"strings"

	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

// Kind is the user-facing failure category.
type Kind string

// Failure kinds.
const (
	None          Kind = "none"
	Validation    Kind = "validation"
	Busy          Kind = "busy"
	Cancelled     Kind = "cancelled"
	Timeout       Kind = "timeout"
	AIUnavailable Kind = "ai_unavailable"
	RateLimited   Kind = "rate_limited"
	Generic       Kind = "generic"
)

var (
	rateLimitMarkers   = []string{"rate limit", "too many requests", "429", "quota"}
	unavailableMarkers = []string{"ai service", "503", "unavailable", "model not loaded", "llm"}
)

// Classify derives the presentation kind of r.
// The structured category wins; the message is only inspected for backend and transport failures.
func Classify(r result.Result) Kind {
	if r.Success {
		return None
	}
	switch r.Category {
	case result.CategoryValidation:
		return Validation
	case result.CategoryInFlight:
		return Busy
	case result.CategoryCancelled:
		return Cancelled
	case result.CategoryTimedOut:
		return Timeout
	}

	msg := strings.ToLower(r.Message)
	switch {
	case containsAny(msg, rateLimitMarkers):
		return RateLimited
	case containsAny(msg, unavailableMarkers):
		return AIUnavailable
	}
	return Generic
}

// IsSoft reports whether k should be displayed as a warning.
func (k Kind) IsSoft() bool {
	return k == Cancelled || k == Timeout || k == Busy
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
