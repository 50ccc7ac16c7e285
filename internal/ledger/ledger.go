// Package ledger records presence events. At most one record exists
// per (roll number, subject, time, room) per UTC calendar day; the
// guarantee is enforced by a single atomic conditional insert, not a
// check-then-insert sequence, so concurrent double submissions from
// the same student store exactly one record.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Method describes how a presence event was produced.
type Method string

const (
	MethodFaceRecognition Method = "face_recognition"
	MethodManual          Method = "manual"
	MethodQRCode          Method = "qr_code"
)

func (m Method) valid() bool {
	switch m {
	case MethodFaceRecognition, MethodManual, MethodQRCode:
		return true
	}
	return false
}

// Status of the student for the session.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

func (s Status) valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

var (
	// ErrDuplicate means the student is already marked for this
	// session today. Not fatal; the action already happened.
	ErrDuplicate = errors.New("attendance already marked for this session today")

	// ErrValidation is returned for missing roll number, name or
	// session fields.
	ErrValidation = errors.New("roll number, student name, subject, time and room are required")
)

// Record is one presence event.
type Record struct {
	ID              string    `json:"id"`
	RollNumber      int       `json:"roll_number"`
	StudentName     string    `json:"student_name"`
	Timestamp       time.Time `json:"timestamp"`
	Method          Method    `json:"method"`
	Confidence      float64   `json:"confidence"`
	Status          Status    `json:"status"`
	FramesProcessed int       `json:"frames_processed"`
	Subject         string    `json:"subject"`
	Time            string    `json:"time"`
	Room            string    `json:"room"`
}

// Day returns the UTC calendar day the record belongs to, which is the
// granularity of the uniqueness guarantee.
func (r Record) Day() string {
	return r.Timestamp.UTC().Format("2006-01-02")
}

// Store persists records. Insert must be atomic with respect to the
// per-day uniqueness key and return ErrDuplicate on conflict.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	ListForSession(ctx context.Context, subject, classTime, room string, since time.Time) ([]Record, error)
	RecentForStudent(ctx context.Context, rollNumber, limit int) ([]Record, error)
	CountForSession(ctx context.Context, subject, classTime, room, day string) (int, error)
}

// Service validates and applies defaults before writing.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// MarkPresent appends one presence event. Returns ErrDuplicate when a
// record for the same student, session and day already exists.
func (s *Service) MarkPresent(ctx context.Context, rec Record) (Record, error) {
	if rec.RollNumber <= 0 || rec.StudentName == "" || rec.Subject == "" || rec.Time == "" || rec.Room == "" {
		return Record{}, ErrValidation
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Method == "" {
		rec.Method = MethodFaceRecognition
	}
	if rec.Status == "" {
		rec.Status = StatusPresent
	}
	if !rec.Method.valid() || !rec.Status.valid() {
		return Record{}, ErrValidation
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListForSession returns a session's records, most recent first.
func (s *Service) ListForSession(ctx context.Context, subject, classTime, room string, since time.Time) ([]Record, error) {
	if subject == "" || classTime == "" || room == "" {
		return nil, ErrValidation
	}
	return s.store.ListForSession(ctx, subject, classTime, room, since)
}

// RecentForStudent returns a student's last records, most recent first.
func (s *Service) RecentForStudent(ctx context.Context, rollNumber, limit int) ([]Record, error) {
	if rollNumber <= 0 {
		return nil, ErrValidation
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.store.RecentForStudent(ctx, rollNumber, limit)
}

// HeadcountToday returns how many students are marked for the session
// on the current UTC day.
func (s *Service) HeadcountToday(ctx context.Context, subject, classTime, room string) (int, error) {
	if subject == "" || classTime == "" || room == "" {
		return 0, ErrValidation
	}
	day := time.Now().UTC().Format("2006-01-02")
	return s.store.CountForSession(ctx, subject, classTime, room, day)
}
