package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the process-local map store. It has no TTL primitive
// of its own, so the service's sweeper handles expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Put(_ context.Context, email string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[email] = e
	return nil
}

func (s *MemoryStore) Get(_ context.Context, email string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[email]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, email)
	return nil
}

func (s *MemoryStore) BumpAttempts(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[email]; ok {
		e.Attempts++
		s.entries[email] = e
	}
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for email, e := range s.entries {
		if now.After(e.ExpiresAt) {
			delete(s.entries, email)
			n++
		}
	}
	return n
}
