// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentnest/rentnest/internal/auth"
)

func newTestSigner(t *testing.T) *auth.TokenSigner {
	t.Helper()
	signer, err := auth.NewTokenSigner(auth.SignerConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		Issuer:        "rentnest-test",
	})
	require.NoError(t, err)
	return signer
}

func newTestTenant(t *testing.T) *auth.Tenant {
	t.Helper()
	tenant, err := auth.NewTenant("Jamie Park", "jamie@example.com", "jamiepark", "$argon2id$fake", "")
	require.NoError(t, err)
	return tenant
}

func TestNewTokenSigner(t *testing.T) {
	t.Run("rejects missing secrets", func(t *testing.T) {
		_, err := auth.NewTokenSigner(auth.SignerConfig{
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
		})
		assert.Error(t, err)
	})

	t.Run("rejects non-positive lifetimes", func(t *testing.T) {
		_, err := auth.NewTokenSigner(auth.SignerConfig{
			AccessSecret:  "a",
			RefreshSecret: "b",
			AccessTTL:     0,
			RefreshTTL:    time.Hour,
		})
		assert.Error(t, err)
	})
}

func TestTokenIssueAndVerify(t *testing.T) {
	signer := newTestSigner(t)
	tenant := newTestTenant(t)

	t.Run("access token round-trips claims", func(t *testing.T) {
		token, err := signer.IssueAccess(tenant)
		require.NoError(t, err)

		claims, err := signer.VerifyAccess(token)
		require.NoError(t, err)
		assert.Equal(t, tenant.ID.String(), claims.Subject)
		assert.Equal(t, tenant.Username, claims.Username)
		assert.Equal(t, tenant.Email, claims.Email)
		assert.Equal(t, tenant.FullName, claims.FullName)
		assert.Equal(t, "rentnest-test", claims.Issuer)

		id, err := claims.TenantID()
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, id)
	})

	t.Run("refresh token round-trips claims", func(t *testing.T) {
		token, err := signer.IssueRefresh(tenant)
		require.NoError(t, err)

		claims, err := signer.VerifyRefresh(token)
		require.NoError(t, err)
		assert.Equal(t, tenant.ID.String(), claims.Subject)
	})

	t.Run("access and refresh tokens differ", func(t *testing.T) {
		access, err := signer.IssueAccess(tenant)
		require.NoError(t, err)
		refresh, err := signer.IssueRefresh(tenant)
		require.NoError(t, err)
		assert.NotEqual(t, access, refresh)
	})

	t.Run("access token does not verify as refresh", func(t *testing.T) {
		access, err := signer.IssueAccess(tenant)
		require.NoError(t, err)

		_, err = signer.VerifyRefresh(access)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("refresh token does not verify as access", func(t *testing.T) {
		refresh, err := signer.IssueRefresh(tenant)
		require.NoError(t, err)

		_, err = signer.VerifyAccess(refresh)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})
}

func TestTokenVerifyFailures(t *testing.T) {
	signer := newTestSigner(t)
	tenant := newTestTenant(t)

	t.Run("malformed token is invalid", func(t *testing.T) {
		_, err := signer.VerifyAccess("not-a-jwt")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("token signed with different secret is invalid", func(t *testing.T) {
		other, err := auth.NewTokenSigner(auth.SignerConfig{
			AccessSecret:  "some-other-secret",
			RefreshSecret: "another-other-secret",
			AccessTTL:     time.Minute,
			RefreshTTL:    time.Hour,
		})
		require.NoError(t, err)

		token, err := other.IssueAccess(tenant)
		require.NoError(t, err)

		_, err = signer.VerifyAccess(token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("expired token reports expiry", func(t *testing.T) {
		shortLived, err := auth.NewTokenSigner(auth.SignerConfig{
			AccessSecret:  "access-secret-for-tests",
			RefreshSecret: "refresh-secret-for-tests",
			AccessTTL:     time.Nanosecond,
			RefreshTTL:    time.Hour,
		})
		require.NoError(t, err)

		token, err := shortLived.IssueAccess(tenant)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		_, err = shortLived.VerifyAccess(token)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("tampered token is invalid", func(t *testing.T) {
		token, err := signer.IssueAccess(tenant)
		require.NoError(t, err)

		tampered := token[:len(token)-2] + "xx"
		_, err = signer.VerifyAccess(tampered)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})
}

func TestClaimsTenantID(t *testing.T) {
	t.Run("rejects non-ULID subject", func(t *testing.T) {
		claims := &auth.Claims{}
		claims.Subject = "not-a-ulid"

		_, err := claims.TenantID()
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})
}
