// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
)

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = errors.New("export job not found")

// Record is the stored state of one job.
type Record struct {
	ID        string           `json:"id"`
	Kind      domain.JobKind   `json:"kind"`
	Status    domain.JobStatus `json:"status"`
	Source    string           `json:"source,omitempty"`
	Output    string           `json:"output"`
	Error     string           `json:"error,omitempty"`
	ErrorKind domain.Kind      `json:"error_kind,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store is the export job ledger.
type Store interface {
	Put(ctx context.Context, r Record) error
	Get(ctx context.Context, id string) (Record, error)
	// List returns the most recently updated records first.
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// NewStore creates a ledger for backend ("sqlite" or "memory").
func NewStore(backend, dbPath string) (Store, error) {
	switch backend {
	case "", "sqlite":
		if dbPath == "" {
			return NewMemoryStore(), nil
		}
		return NewSqliteStore(filepath.Clean(dbPath))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown job store backend: %s (supported: sqlite, memory)", backend)
	}
}

// MemoryStore keeps records in a map.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Record
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Record)}
}

func (s *MemoryStore) Put(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[r.ID] = r
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	out := make([]Record, 0, len(s.data))
	for _, r := range s.data {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
