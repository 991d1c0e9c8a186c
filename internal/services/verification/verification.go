// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package verification generates the single-use random tokens that prove
// ownership of an email address.
package verification

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

// TokenLength is the number of characters in a verification token.
const TokenLength = 32

// alphabet for verification tokens (alphanumeric, excluding confusing
// characters: 0, O, o, 1, l, I).
const alphabet = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// Generate returns a new cryptographically random verification token.
func Generate() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	for i := range bytes {
		bytes[i] = alphabet[int(bytes[i])%len(alphabet)]
	}

	return string(bytes), nil
}

// Matches compares a stored token with a supplied one in constant time. An
// empty stored token (already-confirmed account) never matches anything.
func Matches(stored, supplied string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
