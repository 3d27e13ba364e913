// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package auth

import (
	"errors"
	"net/http"
)

// Sentinel errors for the authentication core. Callers match them with
// errors.Is; oops wrapping adds codes and context on top.
var (
	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("invalid input")

	// ErrConflict is returned when a unique field (email, username) is taken.
	ErrConflict = errors.New("account already exists")

	// ErrInvalidCredentials is returned for an unknown email or a failed
	// password check. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrPasswordMismatch is returned when the current password supplied to
	// a password change does not verify. Kept separate from
	// ErrInvalidCredentials because the original API reports it as a 400.
	ErrPasswordMismatch = errors.New("current password is incorrect")

	// ErrAccountLocked is returned once the failed-attempt threshold is
	// reached. Lockout is permanent until out-of-band intervention.
	ErrAccountLocked = errors.New("account locked after too many failed login attempts")

	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrResetTokenInvalid covers both unknown and expired reset tokens so
	// the caller cannot distinguish which case occurred.
	ErrResetTokenInvalid = errors.New("reset token is invalid or has expired")

	// ErrTokenExpired is returned when a JWT is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for malformed or badly signed JWTs.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrDependency is returned when an upstream store or service fails or
	// times out.
	ErrDependency = errors.New("dependency failure")
)

// StatusCode maps a core error to the HTTP status its kind carries.
// Transports are out of scope here, but every caller needs the same
// mapping, so it lives next to the sentinels.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrResetTokenInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrAccountLocked):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}
