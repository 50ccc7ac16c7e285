package access

import (
	"context"
	"errors"
	"testing"
	"time"
)

var mlKey = Key{Subject: "Machine Learning", Time: "10:00AM - 11:00 AM", Room: "AB-I 405"}

func TestService_GrantThenStatus(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	rec, err := svc.Set(ctx, mlKey, true, "T1")
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if !rec.Granted || rec.GrantedAt == nil || rec.RevokedAt != nil {
		t.Fatalf("record after grant = %+v", rec)
	}

	open, got, err := svc.Status(ctx, mlKey)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !open || got == nil || got.TeacherID != "T1" {
		t.Fatalf("status = %v, record = %+v", open, got)
	}
}

func TestService_StatusWithoutRecord(t *testing.T) {
	svc := NewService(NewMemoryStore())

	open, rec, err := svc.Status(context.Background(), mlKey)
	if err != nil {
		t.Fatalf("absence must not be an error: %v", err)
	}
	if open || rec != nil {
		t.Fatalf("open = %v, rec = %+v, want closed and nil", open, rec)
	}
}

func TestService_RepeatedGrantIsIdempotent(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	first, err := svc.Set(ctx, mlKey, true, "T1")
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := svc.Set(ctx, mlKey, true, "T1")
	if err != nil {
		t.Fatalf("second grant failed: %v", err)
	}

	if !second.Granted || second.RevokedAt != nil {
		t.Fatalf("record after repeated grant = %+v", second)
	}
	if !second.GrantedAt.After(*first.GrantedAt) {
		t.Errorf("grantedAt not refreshed: first=%v second=%v", first.GrantedAt, second.GrantedAt)
	}
}

func TestService_RevokePreservesGrantedAt(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	granted, _ := svc.Set(ctx, mlKey, true, "T1")
	revoked, err := svc.Set(ctx, mlKey, false, "T2")
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	if revoked.Granted {
		t.Fatal("record still granted after revoke")
	}
	if revoked.RevokedAt == nil {
		t.Fatal("revokedAt not set")
	}
	if revoked.GrantedAt == nil || !revoked.GrantedAt.Equal(*granted.GrantedAt) {
		t.Errorf("grantedAt changed on revoke: %v -> %v", granted.GrantedAt, revoked.GrantedAt)
	}
	if revoked.TeacherID != "T2" {
		t.Errorf("teacher id = %q, want last writer", revoked.TeacherID)
	}
}

func TestService_Validation(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	cases := []struct {
		name      string
		key       Key
		teacherID string
	}{
		{"missing subject", Key{Time: "10-11", Room: "R1"}, "T1"},
		{"missing time", Key{Subject: "ML", Room: "R1"}, "T1"},
		{"missing room", Key{Subject: "ML", Time: "10-11"}, "T1"},
		{"missing teacher", mlKey, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Set(ctx, tc.key, true, tc.teacherID); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}
