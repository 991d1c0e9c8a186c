// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package credential hashes and verifies member passwords. Plaintext
// passwords never leave this package's call stack.
package credential

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is tuned so a single hash takes tens of milliseconds.
const bcryptCost = bcrypt.DefaultCost

// Hash generates a salted one-way hash of password. Repeated calls with the
// same password yield different hashes; only Verify can match them.
func Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches the hash that produced it.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
