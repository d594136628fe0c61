package dlq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/conveyor/id"
)

// ErrNotFound is returned when no entry has the requested ID.
var ErrNotFound = errors.New("dlq: entry not found")

// Store persists dead-letter entries.
type Store interface {
	// Push adds an entry.
	Push(ctx context.Context, e *Entry) error

	// Get returns the entry with the given ID.
	Get(ctx context.Context, entryID id.ID) (*Entry, error)

	// List returns entries in insertion order.
	List(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// MarkReplayed sets ReplayedAt on an entry.
	MarkReplayed(ctx context.Context, entryID id.ID, at time.Time) error

	// Purge removes all entries and returns how many were removed.
	Purge(ctx context.Context) (int, error)

	// Count returns the number of entries.
	Count(ctx context.Context) (int, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	byID    map[string]*Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Entry)}
}

func (s *MemoryStore) Push(_ context.Context, e *Entry) error {
	if e.ID.IsNil() {
		return errors.New("dlq: entry id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := e.ID.String()
	if _, ok := s.byID[key]; ok {
		return fmt.Errorf("dlq: duplicate entry %s", key)
	}
	cp := *e
	s.entries = append(s.entries, &cp)
	s.byID[key] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, entryID id.ID) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entryID)
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, opts ListOpts) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entry
	for _, e := range s.entries {
		if !opts.matches(e) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkReplayed(_ context.Context, entryID id.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[entryID.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, entryID)
	}
	e.ReplayedAt = &at
	return nil
}

func (s *MemoryStore) Purge(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = nil
	s.byID = make(map[string]*Entry)
	return n, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
