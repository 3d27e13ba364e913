// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentnest/rentnest/internal/auth"
)

func TestHashPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	})

	t.Run("different passwords produce different hashes", func(t *testing.T) {
		hash1, err := hasher.Hash("password1")
		require.NoError(t, err)
		hash2, err := hasher.Hash("password2")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.Error(t, err)
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		assert.False(t, hasher.Verify("wrongpassword", hash))
	})

	t.Run("invalid hash format is a mismatch", func(t *testing.T) {
		assert.False(t, hasher.Verify("password", "not-a-valid-hash"))
	})

	t.Run("wrong algorithm is a mismatch", func(t *testing.T) {
		assert.False(t, hasher.Verify("password", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"))
	})

	t.Run("invalid version format is a mismatch", func(t *testing.T) {
		assert.False(t, hasher.Verify("password", "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA"))
	})

	t.Run("invalid parameters format is a mismatch", func(t *testing.T) {
		assert.False(t, hasher.Verify("password", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"))
	})

	t.Run("invalid salt base64 is a mismatch", func(t *testing.T) {
		assert.False(t, hasher.Verify("password", "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA"))
	})

	t.Run("invalid key base64 is a mismatch", func(t *testing.T) {
		assert.False(t, hasher.Verify("password", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!"))
	})

	t.Run("threads overflow is a mismatch", func(t *testing.T) {
		// threads=256 exceeds uint8 max (255)
		assert.False(t, hasher.Verify("password", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA"))
	})

	t.Run("empty digest is a mismatch", func(t *testing.T) {
		assert.False(t, hasher.Verify("password", ""))
	})
}
