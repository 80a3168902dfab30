package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/kailas-cloud/docassist/internal/domain"
)

// Search query limits.
const (
	// MaxLength is the maximum allowed query length in runes.
	MaxLength       = 1000
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Query is a validated natural-language search request.
type Query struct {
	text     string
	offset   int
	pageSize int
}

// New validates a query. Blank text yields domain.ErrBlankQuery.
// Negative offsets are clamped to 0; a non-positive page size means DefaultPageSize.
func New(text string, offset, pageSize int) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, domain.ErrBlankQuery
	}
	if utf8.RuneCountInString(text) > MaxLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", MaxLength)
	}
	if offset < 0 {
		offset = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Query{text: text, offset: offset, pageSize: pageSize}, nil
}

// Text returns the trimmed query text as typed.
func (q Query) Text() string { return q.text }

// Key returns the cache/history key for the query.
func (q Query) Key() string { return Normalize(q.text) }

// Offset returns the result offset.
func (q Query) Offset() int { return q.offset }

// PageSize returns the number of results requested per page.
func (q Query) PageSize() int { return q.pageSize }

// IsFresh reports whether this is a first-page search rather than a load-more.
func (q Query) IsFresh() bool { return q.offset == 0 }

// Next returns the load-more continuation of q.
func (q Query) Next() Query {
	return Query{text: q.text, offset: q.offset + q.pageSize, pageSize: q.pageSize}
}

// Normalize trims, collapses inner whitespace, and case-folds text.
// Casers are stateful, so each call gets its own.
func Normalize(text string) string {
	return cases.Fold().String(strings.Join(strings.Fields(text), " "))
}
