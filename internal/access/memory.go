package access

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded map store for dev and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]Record)}
}

func (s *MemoryStore) Upsert(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.records[rec.Key]; ok && !rec.Granted {
		rec.GrantedAt = prev.GrantedAt
	}
	rec.UpdatedAt = time.Now().UTC()
	s.records[rec.Key] = rec
	return rec, nil
}

func (s *MemoryStore) Get(_ context.Context, key Key) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
