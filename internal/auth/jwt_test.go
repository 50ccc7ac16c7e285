package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("101", RoleStudent, "smartattend", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, err := Parse(pair.AccessToken, "test-key", "smartattend")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Subject != "101" || claims.Role != RoleStudent {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("T1", RoleTeacher, "smartattend", "right-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "wrong-key", "smartattend"); err == nil {
		t.Fatal("token accepted with wrong key")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	pair, err := Issue("T1", RoleTeacher, "other-issuer", "key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "key", "smartattend"); err == nil {
		t.Fatal("token accepted with mismatched issuer")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("101", RoleStudent, "smartattend", "key", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "key", "smartattend"); err == nil {
		t.Fatal("expired token accepted")
	}
}
