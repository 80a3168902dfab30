// Package memory provides an in-process db.Slot.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/kailas-cloud/docassist/internal/db"
)

var _ db.Slot = (*Slot)(nil)

// Slot keeps its value in memory; it is lost on exit.
type Slot struct {
	mu    sync.RWMutex
	value []byte
	set   bool
}

// NewSlot creates an empty slot.
func NewSlot() *Slot { return &Slot{} }

// NewSlotWith creates a slot pre-populated with value.
func NewSlotWith(value []byte) *Slot {
	return &Slot{value: slices.Clone(value), set: true}
}

// Load implements db.Slot.
func (s *Slot) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return nil, db.ErrKeyNotFound
	}
	return slices.Clone(s.value), nil
}

// Save implements db.Slot.
func (s *Slot) Save(_ context.Context, value []byte) error {
	s.mu.Lock()
	s.value = slices.Clone(value)
	s.set = true
	s.mu.Unlock()
	return nil
}
