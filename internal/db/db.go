package db

import (
	"context"
	"time"
)

// Slot is a single named persisted value.
// Load returns ErrKeyNotFound when nothing has been saved yet.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, value []byte) error
}

// Pinger checks backing store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides the key-value operations slot drivers are built on.
type KVStore interface {
	Pinger
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}
