// Package access implements the per-session attendance window. A
// teacher opens or closes the window for one class session; students
// can only be marked present while it is open.
package access

import (
	"context"
	"errors"
	"time"
)

// ErrValidation is returned when a session key field or the teacher id
// is blank.
var ErrValidation = errors.New("subject, time, room and teacher id are required")

// Key identifies one class session. The store keeps at most one record
// per key.
type Key struct {
	Subject string `json:"subject"`
	Time    string `json:"time"`
	Room    string `json:"room"`
}

func (k Key) valid() bool {
	return k.Subject != "" && k.Time != "" && k.Room != ""
}

// Record is the persisted state of one session's attendance window.
type Record struct {
	Key
	Granted   bool       `json:"access_granted"`
	TeacherID string     `json:"teacher_id"`
	GrantedAt *time.Time `json:"granted_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Store persists access records. Upsert must be last-write-wins on the
// session key; Get returns nil when no record exists.
type Store interface {
	Upsert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, key Key) (*Record, error)
}

// Service validates and applies gate toggles.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Set grants or revokes access for a session. Granting stamps
// grantedAt and clears revokedAt; revoking stamps revokedAt and leaves
// grantedAt untouched.
func (s *Service) Set(ctx context.Context, key Key, granted bool, teacherID string) (Record, error) {
	if !key.valid() || teacherID == "" {
		return Record{}, ErrValidation
	}
	now := time.Now().UTC()
	rec := Record{Key: key, Granted: granted, TeacherID: teacherID}
	if granted {
		rec.GrantedAt = &now
	} else {
		rec.RevokedAt = &now
	}
	return s.store.Upsert(ctx, rec)
}

// Status reports whether the window is open. A missing record means
// closed, not an error.
func (s *Service) Status(ctx context.Context, key Key) (bool, *Record, error) {
	if !key.valid() {
		return false, nil, ErrValidation
	}
	rec, err := s.store.Get(ctx, key)
	if err != nil {
		return false, nil, err
	}
	if rec == nil {
		return false, nil, nil
	}
	return rec.Granted, rec, nil
}
