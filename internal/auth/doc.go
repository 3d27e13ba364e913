// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

// Package auth implements the credential and session core of RentNest.
//
// # Domain Types
//
// Tenant is the authenticatable account. Create one through NewTenant,
// which validates and normalizes the identity fields; direct struct
// initialization bypasses validation and may create invalid state.
//
// # Services
//
// Service coordinates the account lifecycle: registration, login with
// brute-force lockout, token refresh, password change, the password-reset
// flow, and logout. It owns no mutable state of its own; every state
// transition is a single atomic write through TenantRepository.
//
// # Collaborators
//
// Avatar upload and reset-link delivery are reached through the Uploader
// and ResetSender interfaces so the core never depends on a concrete
// object store or mail transport.
package auth
