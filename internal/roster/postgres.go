package roster

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Repository persists roster data in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateStudent registers a student. Re-registration with the same
// roll number updates the profile and photo.
func (r *Repository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	if s.RollNumber <= 0 || s.Name == "" {
		return Student{}, ErrValidation
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, roll_number, name, email, phone, course, branch, year, semester, photo_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (roll_number) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			course = EXCLUDED.course,
			branch = EXCLUDED.branch,
			year = EXCLUDED.year,
			semester = EXCLUDED.semester,
			photo_url = COALESCE(NULLIF(EXCLUDED.photo_url, ''), students.photo_url)
		RETURNING id, created_at
	`, s.ID, s.RollNumber, s.Name, s.Email, s.Phone, s.Course, s.Branch, s.Year, s.Semester, s.PhotoURL)
	if err := row.Scan(&s.ID, &s.CreatedAt); err != nil {
		return Student{}, err
	}
	return s, nil
}

// GetStudentByRoll returns ErrNotFound when no student exists.
func (r *Repository) GetStudentByRoll(ctx context.Context, rollNumber int) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, roll_number, name, email, phone, course, branch, year, semester, photo_url, created_at
		FROM students WHERE roll_number = $1
	`, rollNumber)
	var s Student
	err := row.Scan(&s.ID, &s.RollNumber, &s.Name, &s.Email, &s.Phone, &s.Course, &s.Branch, &s.Year, &s.Semester, &s.PhotoURL, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, err
	}
	return s, nil
}

// CreateTeacher registers a teacher with a pre-hashed password.
func (r *Repository) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	if t.TeacherID == "" || t.Name == "" || t.Email == "" || len(t.PasswordHash) == 0 {
		return Teacher{}, ErrValidation
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teachers (id, teacher_id, name, email, phone, department, designation, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (teacher_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			department = EXCLUDED.department,
			designation = EXCLUDED.designation,
			password_hash = EXCLUDED.password_hash
		RETURNING id, created_at
	`, t.ID, t.TeacherID, t.Name, t.Email, t.Phone, t.Department, t.Designation, t.PasswordHash)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// GetTeacher returns ErrNotFound when no teacher exists.
func (r *Repository) GetTeacher(ctx context.Context, teacherID string) (Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, name, email, phone, department, designation, password_hash, created_at
		FROM teachers WHERE teacher_id = $1
	`, teacherID)
	var t Teacher
	err := row.Scan(&t.ID, &t.TeacherID, &t.Name, &t.Email, &t.Phone, &t.Department, &t.Designation, &t.PasswordHash, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, ErrNotFound
	}
	if err != nil {
		return Teacher{}, err
	}
	return t, nil
}
