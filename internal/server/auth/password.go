package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with bcrypt at the given cost.
// If the input is already a bcrypt digest it is returned unchanged, so
// update paths can pass a record through this function without corrupting
// the stored credential.
func HashPassword(plaintext string, cost int) (string, error) {
	if IsHash(plaintext) {
		return plaintext, nil
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPassword reports whether plaintext matches the stored bcrypt digest.
func CheckPassword(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// IsHash reports whether s is already a bcrypt digest.
func IsHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
