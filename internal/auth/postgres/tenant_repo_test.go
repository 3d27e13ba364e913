// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentnest/rentnest/internal/auth"
	"github.com/rentnest/rentnest/internal/auth/postgres"
)

func anyTenantArgs() []interface{} {
	args := make([]interface{}, len(tenantColumns))
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

var tenantColumns = []string{
	"id", "username", "email", "full_name", "password_hash", "avatar_url",
	"failed_attempts", "locked", "refresh_token", "reset_token_hash",
	"reset_token_expires", "created_at", "updated_at",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock pool")
	t.Cleanup(mock.Close)
	return mock
}

func tenantRow(id ulid.ULID) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(tenantColumns).AddRow(
		id.String(), "jamiepark", "jamie@example.com", "Jamie Park",
		"$argon2id$hash", "https://cdn.example.com/a.png",
		0, false, nil, nil, nil, now, now,
	)
}

func TestTenantRepository_Create(t *testing.T) {
	ctx := context.Background()

	newTenant := func(t *testing.T) *auth.Tenant {
		t.Helper()
		tenant, err := auth.NewTenant("Jamie Park", "jamie@example.com", "jamiepark", "$argon2id$hash", "")
		require.NoError(t, err)
		return tenant
	}

	t.Run("inserts new tenant", func(t *testing.T) {
		mock := newMockPool(t)
		tenant := newTenant(t)

		mock.ExpectExec(`INSERT INTO tenants`).
			WithArgs(
				tenant.ID.String(), tenant.Username, tenant.Email, tenant.FullName,
				tenant.PasswordHash, tenant.AvatarURL, tenant.FailedAttempts,
				tenant.Locked, tenant.RefreshToken, tenant.ResetTokenHash,
				tenant.ResetTokenExpires, tenant.CreatedAt, tenant.UpdatedAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := postgres.NewTenantRepository(mock)
		require.NoError(t, repo.Create(ctx, tenant))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to conflict", func(t *testing.T) {
		mock := newMockPool(t)
		tenant := newTenant(t)

		mock.ExpectExec(`INSERT INTO tenants`).
			WithArgs(anyTenantArgs()...).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		repo := postgres.NewTenantRepository(mock)
		err := repo.Create(ctx, tenant)
		assert.ErrorIs(t, err, auth.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors propagate", func(t *testing.T) {
		mock := newMockPool(t)
		tenant := newTenant(t)

		mock.ExpectExec(`INSERT INTO tenants`).
			WithArgs(anyTenantArgs()...).
			WillReturnError(errors.New("connection refused"))

		repo := postgres.NewTenantRepository(mock)
		err := repo.Create(ctx, tenant)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTenantRepository_Getters(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("GetByID returns tenant", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM tenants\s+WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(tenantRow(id))

		repo := postgres.NewTenantRepository(mock)
		tenant, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, tenant.ID)
		assert.Equal(t, "jamiepark", tenant.Username)
		assert.Nil(t, tenant.RefreshToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetByID maps missing row to not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM tenants\s+WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows(tenantColumns))

		repo := postgres.NewTenantRepository(mock)
		_, err := repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetByEmail matches case-insensitively", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM tenants\s+WHERE LOWER\(email\) = LOWER\(\$1\)`).
			WithArgs("Jamie@Example.com").
			WillReturnRows(tenantRow(id))

		repo := postgres.NewTenantRepository(mock)
		tenant, err := repo.GetByEmail(ctx, "Jamie@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "jamie@example.com", tenant.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetByUsername maps missing row to not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM tenants\s+WHERE LOWER\(username\) = LOWER\(\$1\)`).
			WithArgs("ghost").
			WillReturnRows(pgxmock.NewRows(tenantColumns))

		repo := postgres.NewTenantRepository(mock)
		_, err := repo.GetByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetByRefreshToken returns holder", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM tenants\s+WHERE refresh_token = \$1`).
			WithArgs("token-value").
			WillReturnRows(tenantRow(id))

		repo := postgres.NewTenantRepository(mock)
		tenant, err := repo.GetByRefreshToken(ctx, "token-value")
		require.NoError(t, err)
		assert.Equal(t, id, tenant.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTenantRepository_RecordFailure(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("returns counter below threshold", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE tenants`).
			WithArgs(id.String(), 5, pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"failed_attempts", "locked"}).AddRow(3, false))

		repo := postgres.NewTenantRepository(mock)
		attempts, locked, err := repo.RecordFailure(ctx, id, 5)
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.False(t, locked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports lock at threshold", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE tenants`).
			WithArgs(id.String(), 5, pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"failed_attempts", "locked"}).AddRow(5, true))

		repo := postgres.NewTenantRepository(mock)
		attempts, locked, err := repo.RecordFailure(ctx, id, 5)
		require.NoError(t, err)
		assert.Equal(t, 5, attempts)
		assert.True(t, locked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing tenant is not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE tenants`).
			WithArgs(id.String(), 5, pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"failed_attempts", "locked"}))

		repo := postgres.NewTenantRepository(mock)
		_, _, err := repo.RecordFailure(ctx, id, 5)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTenantRepository_RecordSuccess(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("resets counter and stores refresh token", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE tenants`).
			WithArgs(id.String(), "new-refresh", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewTenantRepository(mock)
		require.NoError(t, repo.RecordSuccess(ctx, id, "new-refresh"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing tenant is not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE tenants`).
			WithArgs(id.String(), "new-refresh", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := postgres.NewTenantRepository(mock)
		err := repo.RecordSuccess(ctx, id, "new-refresh")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTenantRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("replaces hash", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE tenants`).
			WithArgs(id.String(), "$argon2id$new", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewTenantRepository(mock)
		require.NoError(t, repo.UpdatePassword(ctx, id, "$argon2id$new"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing tenant is not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE tenants`).
			WithArgs(id.String(), "$argon2id$new", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := postgres.NewTenantRepository(mock)
		err := repo.UpdatePassword(ctx, id, "$argon2id$new")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTenantRepository_SetResetToken(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()
	expires := time.Now().Add(time.Hour)

	t.Run("stores hash and expiry together", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE tenants`).
			WithArgs(id.String(), "tokenhash", expires, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := postgres.NewTenantRepository(mock)
		require.NoError(t, repo.SetResetToken(ctx, id, "tokenhash", expires))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing tenant is not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE tenants`).
			WithArgs(id.String(), "tokenhash", expires, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := postgres.NewTenantRepository(mock)
		err := repo.SetResetToken(ctx, id, "tokenhash", expires)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTenantRepository_ConsumeResetToken(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("swaps password and returns tenant id", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE tenants`).
			WithArgs("tokenhash", "$argon2id$new", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id.String()))

		repo := postgres.NewTenantRepository(mock)
		got, err := repo.ConsumeResetToken(ctx, "tokenhash", "$argon2id$new")
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown or expired token is invalid", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE tenants`).
			WithArgs("tokenhash", "$argon2id$new", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		repo := postgres.NewTenantRepository(mock)
		_, err := repo.ConsumeResetToken(ctx, "tokenhash", "$argon2id$new")
		assert.ErrorIs(t, err, auth.ErrResetTokenInvalid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTenantRepository_ClearRefreshToken(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("clears token and returns holder id", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE tenants`).
			WithArgs("token-value", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id.String()))

		repo := postgres.NewTenantRepository(mock)
		got, err := repo.ClearRefreshToken(ctx, "token-value")
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE tenants`).
			WithArgs("token-value", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		repo := postgres.NewTenantRepository(mock)
		_, err := repo.ClearRefreshToken(ctx, "token-value")
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
