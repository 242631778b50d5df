package cryptox

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestHashPassword_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	h1 := HashPassword(password, salt)
	h2 := HashPassword(password, salt)

	if !bytes.Equal(h1, h2) {
		t.Fatalf("expected same hash for same inputs")
	}

	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	if hex.EncodeToString(h1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(h1))
	}
}

func TestHashPassword_SaltMatters(t *testing.T) {
	password := []byte("secret-password")

	if bytes.Equal(HashPassword(password, []byte("salt-1")), HashPassword(password, []byte("salt-2"))) {
		t.Errorf("expected different hashes for different salts")
	}
}

func TestVerifyPassword(t *testing.T) {
	salt := NewSalt()
	if len(salt) != SaltSize {
		t.Fatalf("salt size = %d, want %d", len(salt), SaltSize)
	}
	stored := HashPassword([]byte("correct horse"), salt)

	if !VerifyPassword([]byte("correct horse"), salt, stored) {
		t.Errorf("expected correct password to verify")
	}
	if VerifyPassword([]byte("wrong horse"), salt, stored) {
		t.Errorf("expected wrong password to be rejected")
	}
}
