// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

// Package postgres implements the auth store contracts on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rentnest/rentnest/internal/auth"
)

// poolIface is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it too, which keeps repository tests off a live database.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TenantRepository implements auth.TenantRepository using PostgreSQL.
// Every mutating statement is a single UPDATE or INSERT so each state
// transition is one atomic write; the lockout counter in particular is
// incremented and checked server-side, never read-modify-write.
type TenantRepository struct {
	pool poolIface
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(pool poolIface) *TenantRepository {
	return &TenantRepository{pool: pool}
}

const tenantColumns = `id, username, email, full_name, password_hash, avatar_url,
	       failed_attempts, locked, refresh_token, reset_token_hash,
	       reset_token_expires, created_at, updated_at`

// Create stores a new tenant. A unique violation on email or username maps
// to auth.ErrConflict.
func (r *TenantRepository) Create(ctx context.Context, tenant *auth.Tenant) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tenants (
			id, username, email, full_name, password_hash, avatar_url,
			failed_attempts, locked, refresh_token, reset_token_hash,
			reset_token_expires, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		tenant.ID.String(),
		tenant.Username,
		tenant.Email,
		tenant.FullName,
		tenant.PasswordHash,
		tenant.AvatarURL,
		tenant.FailedAttempts,
		tenant.Locked,
		tenant.RefreshToken,
		tenant.ResetTokenHash,
		tenant.ResetTokenExpires,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("TENANT_DUPLICATE").
				With("username", tenant.Username).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("TENANT_CREATE_FAILED").
			With("operation", "insert tenant").
			With("username", tenant.Username).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a tenant by ID.
func (r *TenantRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE id = $1
	`, id.String())

	tenant, err := r.scanTenant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TENANT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TENANT_GET_BY_ID_FAILED").
			With("operation", "get tenant by id").
			With("id", id.String()).
			Wrap(err)
	}
	return tenant, nil
}

// GetByEmail retrieves a tenant by email (case-insensitive).
func (r *TenantRepository) GetByEmail(ctx context.Context, email string) (*auth.Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE LOWER(email) = LOWER($1)
	`, email)

	tenant, err := r.scanTenant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TENANT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TENANT_GET_BY_EMAIL_FAILED").
			With("operation", "get tenant by email").
			Wrap(err)
	}
	return tenant, nil
}

// GetByUsername retrieves a tenant by username (case-insensitive).
func (r *TenantRepository) GetByUsername(ctx context.Context, username string) (*auth.Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE LOWER(username) = LOWER($1)
	`, username)

	tenant, err := r.scanTenant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TENANT_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TENANT_GET_BY_USERNAME_FAILED").
			With("operation", "get tenant by username").
			With("username", username).
			Wrap(err)
	}
	return tenant, nil
}

// GetByRefreshToken retrieves the tenant holding the given refresh token.
func (r *TenantRepository) GetByRefreshToken(ctx context.Context, token string) (*auth.Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE refresh_token = $1
	`, token)

	tenant, err := r.scanTenant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TENANT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TENANT_GET_BY_REFRESH_FAILED").
			With("operation", "get tenant by refresh token").
			Wrap(err)
	}
	return tenant, nil
}

// RecordFailure increments the failure counter and sets the lock flag in
// one statement, so concurrent failed logins cannot undercount toward the
// threshold.
func (r *TenantRepository) RecordFailure(ctx context.Context, id ulid.ULID, threshold int) (int, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tenants
		SET failed_attempts = failed_attempts + 1,
		    locked = (failed_attempts + 1 >= $2),
		    updated_at = $3
		WHERE id = $1
		RETURNING failed_attempts, locked
	`, id.String(), threshold, time.Now())

	var attempts int
	var locked bool
	if err := row.Scan(&attempts, &locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, oops.Code("TENANT_NOT_FOUND").
				With("id", id.String()).
				Wrap(auth.ErrNotFound)
		}
		return 0, false, oops.Code("TENANT_RECORD_FAILURE_FAILED").
			With("operation", "record login failure").
			With("id", id.String()).
			Wrap(err)
	}
	return attempts, locked, nil
}

// RecordSuccess resets the counter and overwrites the refresh token in one
// statement. The lock flag is intentionally not cleared: lockout is
// permanent until out-of-band intervention, and a locked tenant never
// reaches this call.
func (r *TenantRepository) RecordSuccess(ctx context.Context, id ulid.ULID, refreshToken string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tenants
		SET failed_attempts = 0,
		    refresh_token = $2,
		    updated_at = $3
		WHERE id = $1
	`, id.String(), refreshToken, time.Now())
	if err != nil {
		return oops.Code("TENANT_RECORD_SUCCESS_FAILED").
			With("operation", "record login success").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("TENANT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePassword replaces the password hash.
func (r *TenantRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tenants
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("TENANT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("TENANT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetResetToken stores the reset-token hash and expiry together.
func (r *TenantRepository) SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expires time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tenants
		SET reset_token_hash = $2,
		    reset_token_expires = $3,
		    updated_at = $4
		WHERE id = $1
	`, id.String(), tokenHash, expires, time.Now())
	if err != nil {
		return oops.Code("TENANT_SET_RESET_FAILED").
			With("operation", "set reset token").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("TENANT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// ConsumeResetToken swaps the password and clears both reset fields in one
// statement keyed on an unexpired token hash. No matching row means the
// token is unknown or expired; the two are indistinguishable to callers.
func (r *TenantRepository) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) (ulid.ULID, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tenants
		SET password_hash = $2,
		    reset_token_hash = NULL,
		    reset_token_expires = NULL,
		    updated_at = $3
		WHERE reset_token_hash = $1
		  AND reset_token_expires > $3
		RETURNING id
	`, tokenHash, newPasswordHash, time.Now())

	var idStr string
	if err := row.Scan(&idStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ulid.ULID{}, oops.Code("RESET_TOKEN_INVALID").Wrap(auth.ErrResetTokenInvalid)
		}
		return ulid.ULID{}, oops.Code("TENANT_CONSUME_RESET_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("TENANT_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	return id, nil
}

// ClearRefreshToken ends the session holding the given refresh token.
func (r *TenantRepository) ClearRefreshToken(ctx context.Context, token string) (ulid.ULID, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tenants
		SET refresh_token = NULL,
		    updated_at = $2
		WHERE refresh_token = $1
		RETURNING id
	`, token, time.Now())

	var idStr string
	if err := row.Scan(&idStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ulid.ULID{}, oops.Code("TENANT_NOT_FOUND").Wrap(auth.ErrNotFound)
		}
		return ulid.ULID{}, oops.Code("TENANT_CLEAR_REFRESH_FAILED").
			With("operation", "clear refresh token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("TENANT_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	return id, nil
}

// scanTenant scans a single row into a Tenant. Callers handle
// pgx.ErrNoRows.
func (r *TenantRepository) scanTenant(row pgx.Row) (*auth.Tenant, error) {
	var (
		idStr             string
		username          string
		email             string
		fullName          string
		passwordHash      string
		avatarURL         string
		failedAttempts    int
		locked            bool
		refreshToken      *string
		resetTokenHash    *string
		resetTokenExpires *time.Time
		createdAt         time.Time
		updatedAt         time.Time
	)

	err := row.Scan(
		&idStr,
		&username,
		&email,
		&fullName,
		&passwordHash,
		&avatarURL,
		&failedAttempts,
		&locked,
		&refreshToken,
		&resetTokenHash,
		&resetTokenExpires,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("TENANT_SCAN_FAILED").
			With("operation", "scan tenant").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("TENANT_INVALID_ID").
			With("operation", "parse tenant id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.Tenant{
		ID:                id,
		Username:          username,
		Email:             email,
		FullName:          fullName,
		PasswordHash:      passwordHash,
		AvatarURL:         avatarURL,
		FailedAttempts:    failedAttempts,
		Locked:            locked,
		RefreshToken:      refreshToken,
		ResetTokenHash:    resetTokenHash,
		ResetTokenExpires: resetTokenExpires,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.TenantRepository = (*TenantRepository)(nil)
