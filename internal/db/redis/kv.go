package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docassist/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Set stores a value at the given key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.b().Set().Key(key).Value(rueidis.BinaryString(value)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Del removes a key. Deleting a missing key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// Slot is one key of a Store exposed as db.Slot.
type Slot struct {
	store *Store
	key   string
}

var _ db.Slot = (*Slot)(nil)

// Slot returns the slot stored under key.
func (s *Store) Slot(key string) *Slot {
	return &Slot{store: s, key: key}
}

// Load implements db.Slot.
func (sl *Slot) Load(ctx context.Context) ([]byte, error) {
	return sl.store.Get(ctx, sl.key)
}

// Save implements db.Slot.
func (sl *Slot) Save(ctx context.Context, value []byte) error {
	return sl.store.Set(ctx, sl.key, value)
}
