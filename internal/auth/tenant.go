// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultLockoutThreshold is the number of consecutive failed logins that
// locks an account.
const DefaultLockoutThreshold = 5

// Tenant represents an authenticatable account.
//
// Invariants: Locked is set exactly when FailedAttempts reaches the
// threshold inside a failed login; ResetTokenHash and ResetTokenExpires are
// both set or both nil; RefreshToken holds at most one live value, so a new
// login invalidates the previous session.
type Tenant struct {
	ID                ulid.ULID
	Username          string
	Email             string
	FullName          string
	PasswordHash      string
	AvatarURL         string
	FailedAttempts    int
	Locked            bool
	RefreshToken      *string
	ResetTokenHash    *string
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewTenant creates a validated Tenant. Identity fields are trimmed;
// username and email are stored lowercase. The password hash must already
// be computed - this constructor never sees a plaintext password.
func NewTenant(fullName, email, username, passwordHash, avatarURL string) (*Tenant, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if fullName == "" || email == "" || username == "" {
		return nil, oops.Code("AUTH_VALIDATION").
			Wrap(ErrValidation)
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_VALIDATION").
			With("field", "password_hash").
			Wrap(ErrValidation)
	}

	now := time.Now()
	return &Tenant{
		ID:           ulid.Make(),
		Username:     strings.ToLower(username),
		Email:        strings.ToLower(email),
		FullName:     fullName,
		PasswordHash: passwordHash,
		AvatarURL:    avatarURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsLocked reports whether the account is locked out.
func (t *Tenant) IsLocked() bool {
	return t.Locked
}

// RecordFailure increments the failure counter and sets the lock flag when
// the post-increment counter reaches the threshold. Returns true if this
// failure locked the account.
func (t *Tenant) RecordFailure(threshold int) bool {
	t.FailedAttempts++
	t.UpdatedAt = time.Now()
	if t.FailedAttempts >= threshold {
		t.Locked = true
	}
	return t.Locked
}

// RecordSuccess resets the failure counter and installs the new refresh
// token as the single live session token.
func (t *Tenant) RecordSuccess(refreshToken string) {
	t.FailedAttempts = 0
	t.RefreshToken = &refreshToken
	t.UpdatedAt = time.Now()
}

// Sanitized returns a copy with credential material removed, suitable for
// returning to callers.
func (t *Tenant) Sanitized() *Tenant {
	clean := *t
	clean.PasswordHash = ""
	clean.RefreshToken = nil
	clean.ResetTokenHash = nil
	clean.ResetTokenExpires = nil
	return &clean
}

// TenantRepository is the account record store. Each mutating method is a
// single atomic per-record write; the counter-then-lock sequence in
// particular must be linearizable per tenant so concurrent failed logins
// cannot undercount toward the lockout threshold.
type TenantRepository interface {
	// Create stores a new tenant. Returns ErrConflict when the email or
	// username is already taken.
	Create(ctx context.Context, tenant *Tenant) error

	// GetByID retrieves a tenant by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Tenant, error)

	// GetByEmail retrieves a tenant by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Tenant, error)

	// GetByUsername retrieves a tenant by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*Tenant, error)

	// GetByRefreshToken retrieves the tenant whose stored refresh token
	// equals the supplied value.
	GetByRefreshToken(ctx context.Context, token string) (*Tenant, error)

	// RecordFailure atomically increments the failed-attempt counter and
	// sets the lock flag when the post-increment counter reaches the
	// threshold. Returns the new counter value and lock state.
	RecordFailure(ctx context.Context, id ulid.ULID, threshold int) (attempts int, locked bool, err error)

	// RecordSuccess atomically resets the counter, clears the lock input
	// state, and overwrites the stored refresh token.
	RecordSuccess(ctx context.Context, id ulid.ULID, refreshToken string) error

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetResetToken stores the reset-token hash and expiry as one write.
	SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expires time.Time) error

	// ConsumeResetToken atomically swaps the password hash and clears both
	// reset fields on the tenant whose unexpired reset-token hash matches.
	// Returns ErrResetTokenInvalid when no such tenant exists, covering
	// both the unknown and the expired case.
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) (ulid.ULID, error)

	// ClearRefreshToken clears the stored refresh token on the tenant whose
	// current value equals the supplied one. Returns ErrNotFound when no
	// tenant holds that token.
	ClearRefreshToken(ctx context.Context, token string) (ulid.ULID, error)
}
