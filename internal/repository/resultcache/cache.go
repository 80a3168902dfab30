// Package resultcache keeps recent fresh-search results keyed by normalised query text.
package resultcache

import (
	"slices"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/docassist/internal/domain/search/query"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
	"github.com/kailas-cloud/docassist/internal/metrics"
)

// DefaultTTL is how long a cached result stays valid.
const DefaultTTL = 5 * time.Minute

// Clock returns the current time.
type Clock func() time.Time

// Entry is a cached result and the time it was stored.
type Entry struct {
	Result   result.Result
	StoredAt time.Time
}

// Cache is a TTL cache with lazy eviction. Entries are only removed by Get
// when expired, or by Clear; there is no size bound and no background sweep.
type Cache struct {
	// mu pairs Get's expiry check and delete with Put, so an expired read never
	// deletes an entry stored in between. go-cache locks every other access itself.
	mu     sync.Mutex
	items  *gocache.Cache
	ttl    time.Duration
	now    Clock
	lookup *prometheus.CounterVec
}

// Default is the process-wide cache shared by every orchestrator.
var Default = New(DefaultTTL, nil, metrics.ResultCacheTotal)

// New creates a cache. A nil clock means time.Now; lookup may be nil.
// lookup is a counter vec with label "result" ("hit"/"miss"/"expired").
func New(ttl time.Duration, clock Clock, lookup *prometheus.CounterVec) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		// Expiry is checked against the injected clock, so the library never expires or sweeps.
		items:  gocache.New(gocache.NoExpiration, 0),
		ttl:    ttl,
		now:    clock,
		lookup: lookup,
	}
}

// Get returns the entry for text if present and not older than the TTL.
func (c *Cache) Get(text string) (Entry, bool) {
	key := query.Normalize(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.items.Get(key)
	if !ok {
		c.inc("miss")
		return Entry{}, false
	}
	e := v.(Entry)
	if c.now().Sub(e.StoredAt) > c.ttl {
		c.items.Delete(key)
		c.inc("expired")
		return Entry{}, false
	}
	c.inc("hit")
	return clone(e), true
}

// Put stores r under the normalised text, stamped with the current clock time.
func (c *Cache) Put(text string, r result.Result) {
	key := query.Normalize(text)
	e := clone(Entry{Result: r, StoredAt: c.now()})

	c.mu.Lock()
	c.items.Set(key, e, gocache.NoExpiration)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.items.Flush()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

func (c *Cache) inc(outcome string) {
	if c.lookup != nil {
		c.lookup.WithLabelValues(outcome).Inc()
	}
}

// clone detaches the item slice so callers appending load-more pages never touch the cached copy.
func clone(e Entry) Entry {
	e.Result.Items = slices.Clone(e.Result.Items)
	return e
}
