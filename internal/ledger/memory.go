package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore enforces the same per-day uniqueness key as the Postgres
// store under a single mutex. Used in dev mode and tests.
type MemoryStore struct {
	mu      sync.Mutex
	byKey   map[string]struct{}
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]struct{})}
}

func dedupKey(rec Record) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s", rec.RollNumber, rec.Subject, rec.Time, rec.Room, rec.Day())
}

func (s *MemoryStore) Insert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dedupKey(rec)
	if _, exists := s.byKey[key]; exists {
		return ErrDuplicate
	}
	s.byKey[key] = struct{}{}
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) ListForSession(_ context.Context, subject, classTime, room string, since time.Time) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Record
	for _, rec := range s.records {
		if rec.Subject == subject && rec.Time == classTime && rec.Room == room && !rec.Timestamp.Before(since) {
			res = append(res, rec)
		}
	}
	sortNewestFirst(res)
	return res, nil
}

func (s *MemoryStore) RecentForStudent(_ context.Context, rollNumber, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Record
	for _, rec := range s.records {
		if rec.RollNumber == rollNumber {
			res = append(res, rec)
		}
	}
	sortNewestFirst(res)
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *MemoryStore) CountForSession(_ context.Context, subject, classTime, room, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if rec.Subject == subject && rec.Time == classTime && rec.Room == room && rec.Day() == day {
			n++
		}
	}
	return n, nil
}

func sortNewestFirst(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.After(recs[j].Timestamp)
	})
}
