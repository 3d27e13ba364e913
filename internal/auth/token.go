// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Claims are the statements carried by both access and refresh tokens.
// Profile fields are denormalized so authorization stays stateless.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// TenantID parses the subject claim back into a tenant ID.
func (c *Claims) TenantID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_TOKEN_INVALID").
			With("subject", c.Subject).
			Wrap(ErrTokenInvalid)
	}
	return id, nil
}

// TokenPair bundles a short-lived access token with its longer-lived
// refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SignerConfig carries the secrets and lifetimes for token issuance.
// Secrets are fixed at construction; there is no runtime mutation.
type SignerConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenSigner issues and verifies signed, time-bounded HS256 tokens.
// Access and refresh tokens use independent secrets so one leaking does
// not compromise the other.
type TokenSigner struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewTokenSigner creates a TokenSigner from explicit configuration.
func NewTokenSigner(cfg SignerConfig) (*TokenSigner, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, oops.Code("AUTH_SIGNER_CONFIG").Errorf("token secrets are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, oops.Code("AUTH_SIGNER_CONFIG").Errorf("token lifetimes must be positive")
	}
	return &TokenSigner{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
	}, nil
}

// IssueAccess mints a short-lived access token for the tenant.
func (s *TokenSigner) IssueAccess(t *Tenant) (string, error) {
	return s.issue(t, s.accessSecret, s.accessTTL)
}

// IssueRefresh mints a refresh token for the tenant.
func (s *TokenSigner) IssueRefresh(t *Tenant) (string, error) {
	return s.issue(t, s.refreshSecret, s.refreshTTL)
}

// VerifyAccess verifies an access token and returns its claims.
func (s *TokenSigner) VerifyAccess(token string) (*Claims, error) {
	return verify(token, s.accessSecret)
}

// VerifyRefresh verifies a refresh token and returns its claims.
func (s *TokenSigner) VerifyRefresh(token string) (*Claims, error) {
	return verify(token, s.refreshSecret)
}

func (s *TokenSigner) issue(t *Tenant, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: t.Username,
		Email:    t.Email,
		FullName: t.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			// Timestamps have second precision, so the unique token ID is
			// what keeps two logins in the same second from minting
			// identical refresh tokens.
			ID:        ulid.Make().String(),
			Subject:   t.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

func verify(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrTokenInvalid
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code("AUTH_TOKEN_EXPIRED").Wrap(ErrTokenExpired)
		}
		return nil, oops.Code("AUTH_TOKEN_INVALID").Wrap(ErrTokenInvalid)
	}
	if !parsed.Valid {
		return nil, oops.Code("AUTH_TOKEN_INVALID").Wrap(ErrTokenInvalid)
	}
	return claims, nil
}
