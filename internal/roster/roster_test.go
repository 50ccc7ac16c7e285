package roster

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret-pass")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if string(hash) == "secret-pass" {
		t.Fatal("password stored in plaintext")
	}
	if !CheckPassword(hash, "secret-pass") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong-pass") {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("empty password accepted")
	}
}
