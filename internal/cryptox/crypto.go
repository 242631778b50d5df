// Package cryptox implements password hashing for server-side accounts.
// Passwords are stretched with Argon2id under a per-user random salt and
// compared in constant time.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/fitsync/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32
)

// NewSalt returns a fresh random salt.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// HashPassword derives the stored verifier for password under salt.
func HashPassword(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// VerifyPassword reports whether password hashes to want under salt.
func VerifyPassword(password, salt, want []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}
