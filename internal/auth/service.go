// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rentnest/rentnest/pkg/errutil"
)

// dummyPasswordHash is verified when a login targets an unknown email so
// response time stays consistent with the real-verification path. It can
// never match any password.
//
//nolint:gosec // G101: intentionally fake digest for timing consistency, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// AvatarAsset is an uploaded avatar image handed to registration.
type AvatarAsset struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// Uploader is the media-upload collaborator. Register is its only caller.
type Uploader interface {
	// Upload stores the object under key and returns its public URL.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// ResetSender is the email-delivery collaborator for reset links.
type ResetSender interface {
	SendResetLink(ctx context.Context, to, resetURL string) error
}

// RegisterInput carries the fields required to create a tenant.
type RegisterInput struct {
	FullName string
	Email    string
	Username string
	Password string
	Avatar   *AvatarAsset
}

// Deps bundles the service's collaborators and policy knobs. Logger and
// Metrics are optional; everything else is required.
type Deps struct {
	Tenants  TenantRepository
	Hasher   PasswordHasher
	Signer   *TokenSigner
	Uploader Uploader
	Mailer   ResetSender
	Logger   *slog.Logger
	Metrics  *Metrics

	// LockoutThreshold is the failed-login count that locks an account.
	// Zero means DefaultLockoutThreshold.
	LockoutThreshold int

	// ResetTokenTTL is the reset-token validity window. Zero means
	// DefaultResetTokenTTL.
	ResetTokenTTL time.Duration

	// ResetBaseURL is the public base for reset links, e.g.
	// "https://app.rentnest.io".
	ResetBaseURL string
}

// Service orchestrates the account lifecycle. It is stateless between
// calls; all mutable state lives in the TenantRepository.
type Service struct {
	tenants          TenantRepository
	hasher           PasswordHasher
	signer           *TokenSigner
	uploader         Uploader
	mailer           ResetSender
	logger           *slog.Logger
	metrics          *Metrics
	lockoutThreshold int
	resetTokenTTL    time.Duration
	resetBaseURL     string
}

// NewService creates a Service, validating required dependencies.
func NewService(deps Deps) (*Service, error) {
	if deps.Tenants == nil {
		return nil, oops.Code("AUTH_SERVICE_CONFIG").Errorf("tenant repository is required")
	}
	if deps.Hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_CONFIG").Errorf("password hasher is required")
	}
	if deps.Signer == nil {
		return nil, oops.Code("AUTH_SERVICE_CONFIG").Errorf("token signer is required")
	}
	if deps.Uploader == nil {
		return nil, oops.Code("AUTH_SERVICE_CONFIG").Errorf("uploader is required")
	}
	if deps.Mailer == nil {
		return nil, oops.Code("AUTH_SERVICE_CONFIG").Errorf("reset sender is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.LockoutThreshold <= 0 {
		deps.LockoutThreshold = DefaultLockoutThreshold
	}
	if deps.ResetTokenTTL <= 0 {
		deps.ResetTokenTTL = DefaultResetTokenTTL
	}

	return &Service{
		tenants:          deps.Tenants,
		hasher:           deps.Hasher,
		signer:           deps.Signer,
		uploader:         deps.Uploader,
		mailer:           deps.Mailer,
		logger:           deps.Logger,
		metrics:          deps.Metrics,
		lockoutThreshold: deps.LockoutThreshold,
		resetTokenTTL:    deps.ResetTokenTTL,
		resetBaseURL:     strings.TrimRight(deps.ResetBaseURL, "/"),
	}, nil
}

// Register creates a tenant. All fields must be non-empty after trimming,
// the email and username must be free, and the avatar must upload
// successfully. The returned tenant has credential fields stripped.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Tenant, error) {
	if strings.TrimSpace(in.FullName) == "" ||
		strings.TrimSpace(in.Email) == "" ||
		strings.TrimSpace(in.Username) == "" ||
		strings.TrimSpace(in.Password) == "" {
		return nil, oops.Code("AUTH_VALIDATION").Wrap(ErrValidation)
	}
	if in.Avatar == nil || in.Avatar.Reader == nil {
		return nil, oops.Code("AUTH_VALIDATION").With("field", "avatar").Wrap(ErrValidation)
	}

	if err := s.checkAvailable(ctx, in.Email, in.Username); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").Wrap(errors.Join(ErrDependency, err))
	}

	tenant, err := NewTenant(in.FullName, in.Email, in.Username, hash, "")
	if err != nil {
		return nil, err
	}

	key := path.Join("avatars", tenant.ID.String(), ulid.Make().String()+avatarExt(in.Avatar.ContentType))
	url, err := s.uploader.Upload(ctx, key, in.Avatar.Reader, in.Avatar.Size, in.Avatar.ContentType)
	if err != nil {
		return nil, oops.Code("AUTH_AVATAR_UPLOAD_FAILED").
			With("tenant_id", tenant.ID.String()).
			Wrap(errors.Join(ErrDependency, err))
	}
	tenant.AvatarURL = url

	if err := s.tenants.Create(ctx, tenant); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, s.storeErr("create tenant", err)
	}

	s.metrics.registered()
	s.logger.InfoContext(ctx, "tenant registered",
		"tenant_id", tenant.ID.String(),
		"username", tenant.Username,
	)

	return tenant.Sanitized(), nil
}

// Login verifies credentials and, on success, issues a fresh token pair.
// The new refresh token becomes the tenant's only live session token, so a
// second login invalidates the first session's refresh token. A locked
// account short-circuits before password comparison.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil, oops.Code("AUTH_VALIDATION").Wrap(ErrValidation)
	}

	tenant, err := s.tenants.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Verify against a dummy digest so an unknown email costs the
			// same as a wrong password.
			s.hasher.Verify(password, dummyPasswordHash)
			s.metrics.loginFailure()
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		return nil, s.storeErr("get tenant by email", err)
	}

	if tenant.IsLocked() {
		s.metrics.loginFailure()
		return nil, oops.Code("AUTH_ACCOUNT_LOCKED").
			With("tenant_id", tenant.ID.String()).
			Wrap(ErrAccountLocked)
	}

	if !s.hasher.Verify(password, tenant.PasswordHash) {
		attempts, locked, recErr := s.tenants.RecordFailure(ctx, tenant.ID, s.lockoutThreshold)
		if recErr != nil {
			return nil, s.storeErr("record login failure", recErr)
		}
		if locked {
			s.metrics.lockout()
			s.logger.WarnContext(ctx, "account locked",
				"tenant_id", tenant.ID.String(),
				"failed_attempts", attempts,
			)
			return nil, oops.Code("AUTH_ACCOUNT_LOCKED").
				With("tenant_id", tenant.ID.String()).
				Wrap(ErrAccountLocked)
		}
		s.metrics.loginFailure()
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	pair, err := s.issuePair(ctx, tenant)
	if err != nil {
		return nil, err
	}

	s.metrics.loginSuccess()
	s.logger.InfoContext(ctx, "login", "tenant_id", tenant.ID.String())

	return pair, nil
}

// RefreshSession rotates a refresh token: the supplied token must verify
// and must be the tenant's currently stored session token. On success a
// fresh pair is issued and the old refresh token stops working.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, oops.Code("AUTH_VALIDATION").Wrap(ErrValidation)
	}

	claims, err := s.signer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Valid signature but not the stored value: superseded by a
			// newer login or already logged out.
			return nil, oops.Code("AUTH_TOKEN_INVALID").Wrap(ErrTokenInvalid)
		}
		return nil, s.storeErr("get tenant by refresh token", err)
	}

	if claims.Subject != tenant.ID.String() {
		return nil, oops.Code("AUTH_TOKEN_INVALID").Wrap(ErrTokenInvalid)
	}

	return s.issuePair(ctx, tenant)
}

// Authenticate verifies an access token and returns its claims. Purely
// signature- and expiry-based; no store lookup.
func (s *Service) Authenticate(_ context.Context, accessToken string) (*Claims, error) {
	if accessToken == "" {
		return nil, oops.Code("AUTH_VALIDATION").Wrap(ErrValidation)
	}
	return s.signer.VerifyAccess(accessToken)
}

// ChangePassword replaces the password after verifying the current one.
// The stored refresh token is left untouched: an existing session survives
// a password change.
func (s *Service) ChangePassword(ctx context.Context, id ulid.ULID, currentPassword, newPassword string) error {
	if strings.TrimSpace(currentPassword) == "" || strings.TrimSpace(newPassword) == "" {
		return oops.Code("AUTH_VALIDATION").Wrap(ErrValidation)
	}

	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return s.storeErr("get tenant by id", err)
	}

	if !s.hasher.Verify(currentPassword, tenant.PasswordHash) {
		return oops.Code("AUTH_PASSWORD_MISMATCH").Wrap(ErrPasswordMismatch)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_HASH_FAILED").Wrap(errors.Join(ErrDependency, err))
	}

	if err := s.tenants.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return s.storeErr("update password", err)
	}

	s.logger.InfoContext(ctx, "password changed", "tenant_id", id.String())
	return nil
}

// RequestPasswordReset generates a single-use reset token for the tenant
// with the given email, persists its hash and expiry, and dispatches the
// raw token in a reset link. Delivery is best-effort: the token is already
// persisted, so a send failure is logged and the operation still succeeds.
// The raw token is never persisted or logged.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return oops.Code("AUTH_VALIDATION").Wrap(ErrValidation)
	}

	tenant, err := s.tenants.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return s.storeErr("get tenant by email", err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return oops.Code("AUTH_RESET_REQUEST_FAILED").Wrap(errors.Join(ErrDependency, err))
	}

	expires := time.Now().Add(s.resetTokenTTL)
	if err := s.tenants.SetResetToken(ctx, tenant.ID, hash, expires); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return s.storeErr("set reset token", err)
	}

	s.metrics.resetRequested()

	resetURL := s.resetBaseURL + "/reset-password/" + token
	if err := s.mailer.SendResetLink(ctx, tenant.Email, resetURL); err != nil {
		errutil.LogError(s.logger, "reset link delivery failed", err)
	}

	s.logger.InfoContext(ctx, "password reset requested", "tenant_id", tenant.ID.String())
	return nil
}

// ResetPassword consumes a raw reset token. The password swap and the
// clearing of both reset fields happen in one atomic store write, so a
// token is usable exactly once. Unknown and expired tokens fail the same
// way.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return oops.Code("AUTH_VALIDATION").Wrap(ErrValidation)
	}
	if rawToken == "" {
		return oops.Code("AUTH_RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_HASH_FAILED").Wrap(errors.Join(ErrDependency, err))
	}

	id, err := s.tenants.ConsumeResetToken(ctx, HashResetToken(rawToken), hash)
	if err != nil {
		if errors.Is(err, ErrResetTokenInvalid) {
			return err
		}
		return s.storeErr("consume reset token", err)
	}

	s.logger.InfoContext(ctx, "password reset", "tenant_id", id.String())
	return nil
}

// Logout clears the stored refresh token matching the supplied value. The
// lookup is by token value, not caller identity: whoever presents a live
// refresh token can end that session. Preserved for compatibility with the
// original API.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return oops.Code("AUTH_VALIDATION").Wrap(ErrValidation)
	}

	id, err := s.tenants.ClearRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return s.storeErr("clear refresh token", err)
	}

	s.logger.InfoContext(ctx, "logout", "tenant_id", id.String())
	return nil
}

// issuePair mints both tokens and persists the refresh token as the
// tenant's sole session token, resetting the failure counter in the same
// write.
func (s *Service) issuePair(ctx context.Context, tenant *Tenant) (*TokenPair, error) {
	access, err := s.signer.IssueAccess(tenant)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").Wrap(errors.Join(ErrDependency, err))
	}
	refresh, err := s.signer.IssueRefresh(tenant)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").Wrap(errors.Join(ErrDependency, err))
	}

	if err := s.tenants.RecordSuccess(ctx, tenant.ID, refresh); err != nil {
		return nil, s.storeErr("record login success", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// checkAvailable rejects a registration whose email or username is taken.
// The store's unique constraints still backstop races in Create.
func (s *Service) checkAvailable(ctx context.Context, email, username string) error {
	if _, err := s.tenants.GetByEmail(ctx, email); err == nil {
		return oops.Code("AUTH_CONFLICT").With("field", "email").Wrap(ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return s.storeErr("get tenant by email", err)
	}

	if _, err := s.tenants.GetByUsername(ctx, username); err == nil {
		return oops.Code("AUTH_CONFLICT").With("field", "username").Wrap(ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return s.storeErr("get tenant by username", err)
	}

	return nil
}

func (s *Service) storeErr(op string, err error) error {
	return oops.Code("AUTH_STORE_FAILED").
		With("operation", op).
		Wrap(errors.Join(ErrDependency, err))
}

func avatarExt(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
