// Package history keeps the bounded, most-recent-first list of past search queries.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docassist/internal/db"
)

// Defaults for the history list.
const (
	DefaultCapacity = 10
	DefaultSlot     = "docassist:search_history"
)

// slot is the consumer interface for the persisted value (ISP).
type slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, value []byte) error
}

// Store is a deduplicated query history persisted as a JSON array of strings.
// Operations never return errors: persistence failures are logged and the
// in-memory view of the result is still returned.
type Store struct {
	mu       sync.Mutex
	slot     slot
	capacity int
	logger   *zap.Logger
}

// New creates a history store. capacity <= 0 means DefaultCapacity.
func New(s slot, capacity int, logger *zap.Logger) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{slot: s, capacity: capacity, logger: logger}
}

// Load returns the persisted list, or an empty list when it is missing or garbled.
func (s *Store) Load(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Add moves q to the front, dropping any earlier occurrence and the oldest
// entries beyond capacity. Blank queries leave the list unchanged.
func (s *Store) Add(ctx context.Context, q string) []string {
	q = strings.TrimSpace(q)

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(ctx)
	if q == "" {
		return list
	}
	next := make([]string, 0, len(list)+1)
	next = append(next, q)
	for _, item := range list {
		if item != q {
			next = append(next, item)
		}
	}
	if len(next) > s.capacity {
		next = next[:s.capacity]
	}
	s.save(ctx, next)
	return next
}

// Remove drops q from the list.
func (s *Store) Remove(ctx context.Context, q string) []string {
	q = strings.TrimSpace(q)

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(ctx)
	next := slices.DeleteFunc(slices.Clone(list), func(item string) bool { return item == q })
	if len(next) != len(list) {
		s.save(ctx, next)
	}
	return next
}

// Clear empties the list.
func (s *Store) Clear(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := []string{}
	s.save(ctx, empty)
	return empty
}

func (s *Store) load(ctx context.Context) []string {
	raw, err := s.slot.Load(ctx)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			s.logger.Warn("Failed to load search history", zap.Error(err))
		}
		return []string{}
	}
	if len(raw) == 0 {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		s.logger.Warn("Discarding unreadable search history", zap.Error(err))
		return []string{}
	}
	return s.sanitize(list)
}

// sanitize trims, drops blanks and duplicates, and enforces capacity on a loaded list.
func (s *Store) sanitize(list []string) []string {
	out := make([]string, 0, min(len(list), s.capacity))
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
		if len(out) == s.capacity {
			break
		}
	}
	return out
}

func (s *Store) save(ctx context.Context, list []string) {
	raw, err := json.Marshal(list)
	if err != nil {
		s.logger.Error("Failed to encode search history", zap.Error(err))
		return
	}
	if err := s.slot.Save(ctx, raw); err != nil {
		s.logger.Warn("Failed to persist search history", zap.Error(err))
	}
}
