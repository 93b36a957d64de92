package favorites

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"crypto_dash/internal/storage"
)

type memBackend struct {
	mu      sync.Mutex
	values  map[string]string
	stamps  map[string]int64
	writes  int
	readErr error
	failSet error
}

func newMemBackend() *memBackend {
	return &memBackend{values: make(map[string]string), stamps: make(map[string]int64)}
}

func (m *memBackend) GetMetadata(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.values[key], nil
}

func (m *memBackend) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failSet != nil {
		return m.failSet
	}
	m.values[key] = value
	m.stamps[key] = ts
	return nil
}

func (m *memBackend) UpdatedAt(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stamps[key], nil
}

func TestStore_Load(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		want   []string
	}{
		{"Absent", "", []string{}},
		{"Empty array", "[]", []string{}},
		{"Valid", `["bitcoin","ethereum"]`, []string{"bitcoin", "ethereum"}},
		{"Duplicates dropped", `["bitcoin","bitcoin"]`, []string{"bitcoin"}},
		{"String not array", `"not-an-array"`, []string{}},
		{"Object", `{"bitcoin":true}`, []string{}},
		{"Mixed types", `["bitcoin",1]`, []string{}},
		{"Null", `null`, []string{}},
		{"Garbage", `not json`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newMemBackend()
			if tt.stored != "" {
				b.values["favorites"] = tt.stored
			}
			s := NewStore(b, "favorites")

			got := s.Load(context.Background())
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestStore_LoadReadError(t *testing.T) {
	b := newMemBackend()
	b.readErr = errors.New("disk on fire")
	s := NewStore(b, "favorites")

	if got := s.Load(context.Background()); len(got) != 0 {
		t.Errorf("Expected empty set, got %v", got)
	}
}

func TestStore_Toggle(t *testing.T) {
	b := newMemBackend()
	s := NewStore(b, "favorites")
	s.Load(context.Background())
	ctx := context.Background()

	member, err := s.Toggle(ctx, "bitcoin")
	if err != nil || !member {
		t.Fatalf("Expected bitcoin added, got %v, %v", member, err)
	}
	if b.values["favorites"] != `["bitcoin"]` {
		t.Errorf("unexpected stored value: %s", b.values["favorites"])
	}

	member, err = s.Toggle(ctx, "bitcoin")
	if err != nil || member {
		t.Fatalf("Expected bitcoin removed, got %v, %v", member, err)
	}
	if b.values["favorites"] != `[]` {
		t.Errorf("empty set must serialize as [], got %s", b.values["favorites"])
	}
	if b.writes != 2 {
		t.Errorf("Expected a write per toggle, got %d", b.writes)
	}
}

func TestStore_ToggleTwiceRestoresMembership(t *testing.T) {
	b := newMemBackend()
	b.values["favorites"] = `["ethereum","cardano"]`
	s := NewStore(b, "favorites")
	s.Load(context.Background())
	ctx := context.Background()

	for _, id := range []string{"ethereum", "bitcoin"} {
		before := s.Has(id)
		s.Toggle(ctx, id)
		s.Toggle(ctx, id)
		if s.Has(id) != before {
			t.Errorf("%s: membership changed after two toggles", id)
		}
	}
}

func TestStore_ToggleWriteFailure(t *testing.T) {
	b := newMemBackend()
	b.failSet = errors.New("read-only")
	s := NewStore(b, "favorites")

	member, err := s.Toggle(context.Background(), "bitcoin")
	if err == nil {
		t.Fatal("Expected write error")
	}
	if !member || !s.Has("bitcoin") {
		t.Error("in-memory toggle should stand after a failed write")
	}
}

func TestStore_ListOrder(t *testing.T) {
	s := NewStore(newMemBackend(), "")
	if got := s.List(); got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil list, got %v", got)
	}

	ctx := context.Background()
	s.Toggle(ctx, "c")
	s.Toggle(ctx, "a")
	s.Toggle(ctx, "b")
	s.Toggle(ctx, "a")

	got := s.List()
	if len(got) != 2 || got[0] != "c" || got[1] != "b" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	meta, err := storage.NewMetaStore(filepath.Join(t.TempDir(), "favorites.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer meta.Close()
	ctx := context.Background()

	s := NewStore(meta, "favorites")
	s.Load(ctx)
	s.Toggle(ctx, "bitcoin")
	s.Toggle(ctx, "ethereum")

	reloaded := NewStore(meta, "favorites")
	got := reloaded.Load(ctx)
	if len(got) != 2 || got[0] != "bitcoin" || got[1] != "ethereum" {
		t.Errorf("unexpected reloaded set: %v", got)
	}
}

func TestStore_UpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemBackend(), "favorites")
	s.Load(ctx)

	if ts, err := s.UpdatedAt(ctx); err != nil || !ts.IsZero() {
		t.Errorf("Expected zero time before any write, got %v (%v)", ts, err)
	}

	before := time.Now().Add(-time.Second)
	s.Toggle(ctx, "bitcoin")

	ts, err := s.UpdatedAt(ctx)
	if err != nil {
		t.Fatalf("UpdatedAt failed: %v", err)
	}
	if ts.Before(before) {
		t.Errorf("timestamp %v should follow the toggle", ts)
	}
}
