// Package otp implements the one-time-passcode step for teacher login.
// Codes are bound to a normalized email address, expire after a fixed
// window and survive at most five failed attempts.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"
)

var (
	ErrInvalidEmail    = errors.New("email cannot be normalized to a valid address")
	ErrNotConfigured   = errors.New("otp delivery is not configured")
	ErrNotFound        = errors.New("no passcode issued for this email")
	ErrExpired         = errors.New("passcode has expired")
	ErrTooManyAttempts = errors.New("too many failed attempts")
	ErrMismatch        = errors.New("incorrect passcode")
)

const (
	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 5
	DefaultSweepEvery  = 5 * time.Minute
)

// Entry is one issued passcode.
type Entry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// Store keeps entries keyed by normalized email. Put overwrites any
// prior entry for the same email. Sweep removes expired entries and is
// a no-op for backends with native TTL.
type Store interface {
	Put(ctx context.Context, email string, e Entry) error
	Get(ctx context.Context, email string) (*Entry, error)
	Delete(ctx context.Context, email string) error
	BumpAttempts(ctx context.Context, email string) error
	Sweep(ctx context.Context, now time.Time) int
}

// Sender delivers a freshly issued code to the teacher.
type Sender interface {
	Send(ctx context.Context, email, displayName, code string) error
}

// Service issues and verifies passcodes.
type Service struct {
	store       Store
	sender      Sender
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewService(store Store, sender Sender) *Service {
	return &Service{
		store:       store,
		sender:      sender,
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
}

// Issue generates a 6-digit code for the email, stores it (replacing
// any unexpired prior code) and hands it to the sender.
func (s *Service) Issue(ctx context.Context, email, displayName string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if s.sender == nil {
		return ErrNotConfigured
	}
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate passcode: %w", err)
	}
	entry := Entry{Code: code, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.store.Put(ctx, normalized, entry); err != nil {
		return fmt.Errorf("store passcode: %w", err)
	}
	if err := s.sender.Send(ctx, normalized, displayName, code); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	return nil
}

// Verify checks the submitted code. The entry is deleted on success,
// on expiry and after the attempt budget is exhausted; a plain
// mismatch only burns one attempt.
func (s *Service) Verify(ctx context.Context, email, submitted string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	entry, err := s.store.Get(ctx, normalized)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrNotFound
	}
	if s.now().After(entry.ExpiresAt) {
		_ = s.store.Delete(ctx, normalized)
		return ErrExpired
	}
	if entry.Attempts >= s.maxAttempts {
		_ = s.store.Delete(ctx, normalized)
		return ErrTooManyAttempts
	}
	if entry.Code != submitted {
		if err := s.store.BumpAttempts(ctx, normalized); err != nil {
			log.Printf("otp: bump attempts for %s failed: %v", normalized, err)
		}
		remaining := s.maxAttempts - entry.Attempts - 1
		return fmt.Errorf("%w (%d attempts remaining)", ErrMismatch, remaining)
	}
	return s.store.Delete(ctx, normalized)
}

// RunSweeper periodically removes expired entries until ctx is done.
// Backends without native expiry need this; verify-triggered deletion
// alone leaves abandoned codes behind.
func (s *Service) RunSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = DefaultSweepEvery
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if n := s.store.Sweep(ctx, s.now()); n > 0 {
				log.Printf("otp: swept %d expired passcodes", n)
			}
		}
	}
}

// NormalizeEmail trims whitespace, collapses repeated '@' runs and
// repairs a missing '@' after an underscore-joined local part. The
// result must contain exactly one '@' with text on both sides.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.TrimSpace(email)
	for strings.Contains(normalized, "@@") {
		normalized = strings.ReplaceAll(normalized, "@@", "@")
	}

	switch strings.Count(normalized, "@") {
	case 0:
		// Addresses sometimes arrive with the '@' dropped, e.g.
		// "name_cs23_gla.ac.in"; restore it before the last segment
		// when that segment looks like a domain.
		if idx := strings.LastIndex(normalized, "_"); idx > 0 {
			if domain := normalized[idx+1:]; strings.Contains(domain, ".") {
				normalized = normalized[:idx] + "@" + domain
			}
		}
	case 1:
	default:
		first := strings.Index(normalized, "@")
		normalized = normalized[:first+1] + strings.ReplaceAll(normalized[first+1:], "@", "")
	}

	parts := strings.Split(normalized, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return normalized, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
