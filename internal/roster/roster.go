// Package roster holds registered students and teachers.
package roster

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound   = errors.New("no such student or teacher")
	ErrValidation = errors.New("required registration fields missing")
)

// Student as registered with a reference photo.
type Student struct {
	ID         string    `json:"id"`
	RollNumber int       `json:"roll_number"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Course     string    `json:"course,omitempty"`
	Branch     string    `json:"branch,omitempty"`
	Year       int       `json:"year,omitempty"`
	Semester   int       `json:"semester,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Teacher with a bcrypt password hash; the plaintext never leaves the
// login handler.
type Teacher struct {
	ID           string    `json:"id"`
	TeacherID    string    `json:"teacher_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Department   string    `json:"department,omitempty"`
	Designation  string    `json:"designation,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(plain string) ([]byte, error) {
	if plain == "" {
		return nil, ErrValidation
	}
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// CheckPassword reports whether plain matches the stored hash.
func CheckPassword(hash []byte, plain string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}
