package store

import (
	"context"
	"database/sql"
)

// statements is the idempotent schema for the attendance service. The
// unique index on attendance_records is what makes marking a student
// present an atomic insert-if-absent; the class_access index keeps one
// row per session.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id UUID PRIMARY KEY,
		roll_number INTEGER NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		course TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		semester INTEGER NOT NULL DEFAULT 0,
		photo_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS teachers (
		id UUID PRIMARY KEY,
		teacher_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		designation TEXT NOT NULL DEFAULT '',
		password_hash BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS class_access (
		subject TEXT NOT NULL,
		class_time TEXT NOT NULL,
		room TEXT NOT NULL,
		access_granted BOOLEAN NOT NULL DEFAULT FALSE,
		teacher_id TEXT NOT NULL,
		granted_at TIMESTAMPTZ,
		revoked_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (subject, class_time, room)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id UUID PRIMARY KEY,
		roll_number INTEGER NOT NULL,
		student_name TEXT NOT NULL,
		marked_at TIMESTAMPTZ NOT NULL,
		day DATE NOT NULL,
		method TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		frames_processed INTEGER NOT NULL DEFAULT 0,
		subject TEXT NOT NULL,
		class_time TEXT NOT NULL,
		room TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS attendance_once_per_day
		ON attendance_records (roll_number, subject, class_time, room, day)`,
	`CREATE INDEX IF NOT EXISTS attendance_by_session
		ON attendance_records (subject, class_time, room, marked_at DESC)`,
	`CREATE INDEX IF NOT EXISTS attendance_by_student
		ON attendance_records (roll_number, marked_at DESC)`,
}

// Migrate applies the schema. Safe to run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
