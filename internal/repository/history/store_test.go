package history

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestLoad_MissingOrGarbled(t *testing.T) {
	tests := []struct {
		name    string
		initial string
	}{
		{"missing", ""},
		{"not json", "{{{"},
		{"object", `{"a":1}`},
		{"numbers", `[1,2,3]`},
		{"null", `null`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestStore(tc.initial)
			got := s.Load(context.Background())
			if got == nil || len(got) != 0 {
				t.Errorf("Load() = %#v, want empty non-nil list", got)
			}
		})
	}
}

func TestLoad_SanitizesPersistedList(t *testing.T) {
	s, _ := newTestStore(`[" a ", "", "b", "a", "c"]`)
	got := s.Load(context.Background())
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %v, want %v", got, want)
	}
}

func TestAdd_DedupAndPromote(t *testing.T) {
	ctx := context.Background()
	s, slot := newTestStore(`["a","b","c"]`)

	got := s.Add(ctx, "b")
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Add(b) = %v, want %v", got, want)
	}

	raw, _ := slot.Load(ctx)
	if string(raw) != `["b","a","c"]` {
		t.Errorf("persisted = %s", raw)
	}
}

func TestAdd_Bound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore("")

	for i := 1; i <= 11; i++ {
		s.Add(ctx, fmt.Sprintf("q%d", i))
	}
	got := s.Load(ctx)
	if len(got) != DefaultCapacity {
		t.Fatalf("len = %d, want %d", len(got), DefaultCapacity)
	}
	if got[0] != "q11" || got[len(got)-1] != "q2" {
		t.Errorf("history = %v, want q11..q2 with q1 dropped", got)
	}
}

func TestAdd_TrimsAndIgnoresBlank(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(`["a"]`)

	if got := s.Add(ctx, "   "); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("blank Add = %v", got)
	}
	if got := s.Add(ctx, "  a "); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("padded duplicate Add = %v", got)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(`["a","b","c"]`)

	if got := s.Remove(ctx, "b"); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Remove(b) = %v", got)
	}
	if got := s.Remove(ctx, "zzz"); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Remove(missing) = %v", got)
	}
	if got := s.Load(ctx); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Load after Remove = %v", got)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s, slot := newTestStore(`["a","b"]`)

	if got := s.Clear(ctx); len(got) != 0 {
		t.Errorf("Clear() = %v", got)
	}
	raw, _ := slot.Load(ctx)
	if string(raw) != `[]` {
		t.Errorf("persisted = %s, want []", raw)
	}
}

func TestPersistenceErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()

	loadFails := New(&failingSlot{loadErr: errSlotDown}, 3, nil)
	if got := loadFails.Load(ctx); len(got) != 0 {
		t.Errorf("Load with failing slot = %v", got)
	}

	fs := &failingSlot{saveErr: errSlotDown}
	saveFails := New(fs, 3, nil)
	got := saveFails.Add(ctx, "new")
	if !reflect.DeepEqual(got, []string{"new", "kept"}) {
		t.Errorf("Add with failing save = %v", got)
	}
	if fs.saves != 1 {
		t.Errorf("saves = %d, want 1", fs.saves)
	}
}

func TestAdd_ConcurrentWritersKeepEveryQuery(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore("")

	var wg sync.WaitGroup
	for i := range DefaultCapacity {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(ctx, fmt.Sprintf("q%d", i))
		}()
	}
	wg.Wait()

	if got := s.Load(ctx); len(got) != DefaultCapacity {
		t.Errorf("len = %d, want %d (lost update)", len(got), DefaultCapacity)
	}
}
