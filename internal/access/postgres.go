package access

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore keeps access records in Postgres with a unique index on
// (subject, class_time, room), so concurrent toggles resolve to
// whichever upsert commits last.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert inserts or overwrites the record for the session key. On a
// revoke the stored granted_at is preserved.
func (s *PostgresStore) Upsert(ctx context.Context, rec Record) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO class_access (subject, class_time, room, access_granted, teacher_id, granted_at, revoked_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (subject, class_time, room) DO UPDATE SET
			access_granted = EXCLUDED.access_granted,
			teacher_id     = EXCLUDED.teacher_id,
			granted_at     = CASE WHEN EXCLUDED.access_granted THEN EXCLUDED.granted_at ELSE class_access.granted_at END,
			revoked_at     = EXCLUDED.revoked_at,
			updated_at     = NOW()
		RETURNING granted_at, revoked_at, updated_at
	`, rec.Subject, rec.Time, rec.Room, rec.Granted, rec.TeacherID, rec.GrantedAt, rec.RevokedAt)

	var grantedAt, revokedAt sql.NullTime
	var updatedAt time.Time
	if err := row.Scan(&grantedAt, &revokedAt, &updatedAt); err != nil {
		return Record{}, err
	}
	rec.GrantedAt = nullableTime(grantedAt)
	rec.RevokedAt = nullableTime(revokedAt)
	rec.UpdatedAt = updatedAt
	return rec, nil
}

// Get returns nil when no record exists for the key.
func (s *PostgresStore) Get(ctx context.Context, key Key) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT access_granted, teacher_id, granted_at, revoked_at, updated_at
		FROM class_access
		WHERE subject = $1 AND class_time = $2 AND room = $3
	`, key.Subject, key.Time, key.Room)

	rec := Record{Key: key}
	var grantedAt, revokedAt sql.NullTime
	if err := row.Scan(&rec.Granted, &rec.TeacherID, &grantedAt, &revokedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.GrantedAt = nullableTime(grantedAt)
	rec.RevokedAt = nullableTime(revokedAt)
	return &rec, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
