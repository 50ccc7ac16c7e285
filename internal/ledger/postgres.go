package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore persists records in the attendance_records table. The
// table carries a unique index on (roll_number, subject, class_time,
// room, day); the insert relies on ON CONFLICT DO NOTHING so the
// duplicate check and the write are one atomic statement.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(id, roll_number, student_name, marked_at, day, method, confidence, status, frames_processed, subject, class_time, room)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (roll_number, subject, class_time, room, day) DO NOTHING
		RETURNING id
	`, rec.ID, rec.RollNumber, rec.StudentName, rec.Timestamp, rec.Day(), rec.Method,
		rec.Confidence, rec.Status, rec.FramesProcessed, rec.Subject, rec.Time, rec.Room)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *PostgresStore) ListForSession(ctx context.Context, subject, classTime, room string, since time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, roll_number, student_name, marked_at, method, confidence, status, frames_processed, subject, class_time, room
		FROM attendance_records
		WHERE subject = $1 AND class_time = $2 AND room = $3 AND marked_at >= $4
		ORDER BY marked_at DESC
	`, subject, classTime, room, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) RecentForStudent(ctx context.Context, rollNumber, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, roll_number, student_name, marked_at, method, confidence, status, frames_processed, subject, class_time, room
		FROM attendance_records
		WHERE roll_number = $1
		ORDER BY marked_at DESC
		LIMIT $2
	`, rollNumber, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) CountForSession(ctx context.Context, subject, classTime, room, day string) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_records
		WHERE subject = $1 AND class_time = $2 AND room = $3 AND day = $4
	`, subject, classTime, room, day)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.RollNumber, &rec.StudentName, &rec.Timestamp, &rec.Method,
			&rec.Confidence, &rec.Status, &rec.FramesProcessed, &rec.Subject, &rec.Time, &rec.Room); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
