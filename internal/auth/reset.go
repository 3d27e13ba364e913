// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Reset token configuration.
const (
	// ResetTokenBytes is the entropy of a raw reset token (64 hex chars).
	ResetTokenBytes = 32

	// DefaultResetTokenTTL is the window in which a reset token is usable.
	DefaultResetTokenTTL = time.Hour
)

// GenerateResetToken creates a high-entropy single-use token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext goes to the
// user out of band; only the hash is ever persisted. The hash is a fast
// deterministic digest, not the slow password hasher - the token has full
// entropy and must be usable as a lookup key.
func GenerateResetToken() (token, hash string, err error) {
	raw := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", oops.Code("AUTH_RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token = hex.EncodeToString(raw)
	hash = HashResetToken(token)

	return token, hash, nil
}

// HashResetToken computes the sha256 hex digest of a raw reset token.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyResetToken checks a raw token against a stored hash in constant
// time.
func VerifyResetToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashResetToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
