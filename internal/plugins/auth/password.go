package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the adaptive work factor for password hashing. 12 keeps a
// single hash in the hundreds of milliseconds on current hardware, which is
// the point: brute-force search must be deliberately slow.
const bcryptCost = 12

// HashPassword creates a salted bcrypt digest of the given plaintext.
// bcrypt embeds a random salt, so hashing the same plaintext twice yields
// different digests. Called explicitly by the service flows before any
// repository write -- hashing is never a persistence side effect.
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(digest), nil
}

// VerifyPassword checks a plaintext password against a stored bcrypt digest.
// bcrypt's comparison is constant-time over the derived key, so the result
// does not leak where a mismatch occurs.
//
// Federated identities store no digest; an empty digest fails immediately
// without running bcrypt at all.
func VerifyPassword(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
