package id

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string { return randomHex(16) }

// NewClientToken returns a 64-char lowercase hex secret (32 random bytes).
// It is the capability an applicant uses to read their own status.
func NewClientToken() string { return randomHex(32) }

// NewApplicationID returns a random (v4) UUID string.
func NewApplicationID() string { return uuid.NewString() }

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
