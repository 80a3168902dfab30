package search

import (
	"context"

	"github.com/kailas-cloud/docassist/internal/domain/search/result"
	"github.com/kailas-cloud/docassist/internal/repository/resultcache"
	"github.com/kailas-cloud/docassist/internal/transport/backend"
)

// Backend runs one natural-language search request.
type Backend interface {
	Search(ctx context.Context, req backend.Request) (backend.Response, error)
}

// Cache holds fresh-search results keyed by normalised query text.
type Cache interface {
	Get(text string) (resultcache.Entry, bool)
	Put(text string, r result.Result)
	Clear()
}

// History records searched queries.
type History interface {
	Add(ctx context.Context, q string) []string
}
