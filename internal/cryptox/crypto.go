// Package cryptox holds the password hardening primitives used for the site
// administrator credential. The password itself is never stored: configuration
// carries a salt and a verifier, and a login attempt is checked by re-deriving
// the key and comparing digests in constant time.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// DeriveKey stretches a password into a 32-byte key with argon2id.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns the digest stored in place of a key.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// VerifyPassword re-derives the key for the presented password and compares
// its verifier against the stored one in constant time.
func VerifyPassword(password, salt, verifier []byte) bool {
	derived := MakeVerifier(DeriveKey(password, salt))
	return subtle.ConstantTimeCompare(derived, verifier) == 1
}
