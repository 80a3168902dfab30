// Package file provides a db.Slot persisted as one file on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/docassist/internal/db"
)

var _ db.Slot = (*Slot)(nil)

// Slot stores its value in a single file. Writes go through a temp file and rename.
type Slot struct {
	path string
}

// NewSlot returns a slot persisted at path.
func NewSlot(path string) *Slot { return &Slot{path: path} }

// DefaultPath is the history file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "docassist", "history.json"), nil
}

// Path returns the backing file path.
func (s *Slot) Path() string { return s.path }

// Load implements db.Slot. A missing file yields db.ErrKeyNotFound.
func (s *Slot) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpRead, Err: err}
	}
	return data, nil
}

// Save implements db.Slot.
func (s *Slot) Save(_ context.Context, value []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &db.Error{Op: db.OpWrite, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".slot-*")
	if err != nil {
		return &db.Error{Op: db.OpWrite, Err: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return &db.Error{Op: db.OpWrite, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &db.Error{Op: db.OpWrite, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return &db.Error{Op: db.OpWrite, Err: err}
	}
	return nil
}
