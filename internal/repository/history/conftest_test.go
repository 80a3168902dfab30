package history

import (
	"context"
	"errors"

	"github.com/kailas-cloud/docassist/internal/db/memory"
)

var errSlotDown = errors.New("slot down")

// failingSlot returns errors from every call.
type failingSlot struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingSlot) Load(context.Context) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return []byte(`["kept"]`), nil
}

func (f *failingSlot) Save(context.Context, []byte) error {
	f.saves++
	return f.saveErr
}

func newTestStore(initial string) (*Store, *memory.Slot) {
	slot := memory.NewSlot()
	if initial != "" {
		slot = memory.NewSlotWith([]byte(initial))
	}
	return New(slot, DefaultCapacity, nil), slot
}
