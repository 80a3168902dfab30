package chi

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	chatuc "github.com/kailas-cloud/docassist/internal/usecase/chat"
	searchuc "github.com/kailas-cloud/docassist/internal/usecase/search"
)

// ClientFactory builds the per-caller services.
type ClientFactory struct {
	Search func() *searchuc.Orchestrator
	Chat   func() *chatuc.Service
}

// client is the state one caller owns: its search orchestrator and its conversation.
type client struct {
	search *searchuc.Orchestrator
	chat   *chatuc.Service
}

// clients keeps one client per ID and drops it after the idle period,
// cancelling whatever it still had in flight.
type clients struct {
	mu      sync.Mutex
	items   *gocache.Cache
	factory ClientFactory
}

func newClients(f ClientFactory, idle time.Duration) *clients {
	items := gocache.New(idle, idle/2)
	items.OnEvicted(func(_ string, v any) {
		c := v.(*client)
		c.search.Cancel()
		c.chat.Reset()
	})
	return &clients{items: items, factory: f}
}

// get returns the client for id, creating it on first use. Every call extends its idle deadline.
func (c *clients) get(id string) *client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.items.Get(id); ok {
		cl := v.(*client)
		c.items.SetDefault(id, cl)
		return cl
	}
	cl := &client{search: c.factory.Search(), chat: c.factory.Chat()}
	c.items.SetDefault(id, cl)
	return cl
}

func (c *clients) count() int {
	return c.items.ItemCount()
}
