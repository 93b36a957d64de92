package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Backend is the durable key/value store holding the serialized set.
// storage.MetaStore and storage.RedisStore implement it.
type Backend interface {
	GetMetadata(ctx context.Context, key string) (string, error)
	UpsertMetadata(ctx context.Context, key, value string, ts int64) error
	// UpdatedAt is the Unix milli timestamp of the last write, 0 if never written.
	UpdatedAt(ctx context.Context, key string) (int64, error)
}

// Store is the user's set of favorite asset ids.
// It is loaded once and written back in full after every Toggle.
type Store struct {
	backend Backend
	key     string

	mu  sync.RWMutex
	ids []string // insertion order, unique
}

// NewStore creates an empty store over backend under key.
func NewStore(backend Backend, key string) *Store {
	if key == "" {
		key = "favorites"
	}
	return &Store{backend: backend, key: key}
}

// Load reads the persisted set. An absent key or a value that is not a JSON
// array of strings yields the empty set; errors are logged, never returned.
func (s *Store) Load(ctx context.Context) []string {
	ids := s.read(ctx)

	s.mu.Lock()
	s.ids = ids
	s.mu.Unlock()

	slog.Info("Favorites loaded", slog.Int("count", len(ids)))
	return slices.Clone(ids)
}

func (s *Store) read(ctx context.Context) []string {
	raw, err := s.backend.GetMetadata(ctx, s.key)
	if err != nil {
		slog.Error("Failed to read favorites", slog.String("key", s.key), slog.Any("error", err))
		return []string{}
	}
	if raw == "" {
		return []string{}
	}

	ids, err := Decode(raw)
	if err != nil {
		slog.Error("Malformed favorites, starting empty", slog.String("key", s.key), slog.Any("error", err))
		return []string{}
	}
	return ids
}

// Decode parses a serialized set. Duplicates are dropped, keeping first position.
func Decode(raw string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("favorites: not an array of strings: %w", err)
	}
	if list == nil {
		return nil, fmt.Errorf("favorites: not an array of strings: null")
	}

	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, id := range list {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// Encode serializes ids as a JSON array. The empty set is "[]".
func Encode(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

// Toggle adds id if absent or removes it if present, then writes the whole
// set back. It returns the new membership. A failed write is logged and
// returned; the in-memory change stands.
func (s *Store) Toggle(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	idx := slices.Index(s.ids, id)
	member := idx < 0
	if member {
		s.ids = append(s.ids, id)
	} else {
		s.ids = slices.Delete(s.ids, idx, idx+1)
	}
	payload := Encode(s.ids)
	s.mu.Unlock()

	if err := s.backend.UpsertMetadata(ctx, s.key, payload, time.Now().UnixMilli()); err != nil {
		slog.Error("Failed to save favorites", slog.String("key", s.key), slog.Any("error", err))
		return member, fmt.Errorf("save favorites: %w", err)
	}
	return member, nil
}

// UpdatedAt returns when the set was last saved. The zero time means never.
func (s *Store) UpdatedAt(ctx context.Context) (time.Time, error) {
	ts, err := s.backend.UpdatedAt(ctx, s.key)
	if err != nil {
		return time.Time{}, fmt.Errorf("read favorites timestamp: %w", err)
	}
	if ts == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ts), nil
}

// Has reports whether id is a favorite.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.ids, id)
}

// List returns the favorites in the order they were added.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ids == nil {
		return []string{}
	}
	return slices.Clone(s.ids)
}
