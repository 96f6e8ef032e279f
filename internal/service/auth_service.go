package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/praveenrathi4/complain-app/internal/auth"
	"github.com/praveenrathi4/complain-app/internal/config"
	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/notify"
	"github.com/praveenrathi4/complain-app/internal/repository"
	"github.com/praveenrathi4/complain-app/internal/ttlstore"
	"github.com/praveenrathi4/complain-app/internal/validation"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

const (
	pendingKeyPrefix = "pending-registration:"
	resetKeyPrefix   = "password-reset:"
)

// AuthService coordinates registration, login and account maintenance.
type AuthService struct {
	users      repository.UserRepository
	store      ttlstore.Store
	notifier   Sender
	validator  *validation.Validator
	tokenMgr   *auth.TokenManager
	logger     *zap.Logger
	bcryptCost int
	pendingTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	Store     ttlstore.Store
	Notifier  Sender
	Validator *validation.Validator
	Logger    *zap.Logger
	Clock     func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:      deps.UserRepo,
		store:      deps.Store,
		notifier:   deps.Notifier,
		validator:  deps.Validator,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes, auth.WithIssuer(cfg.JWTIssuer)),
		logger:     deps.Logger,
		bcryptCost: cfg.BcryptCost,
		pendingTTL: cfg.VerificationCodeTTL,
		resetTTL:   cfg.PasswordResetCodeTTL,
		now:        deps.Clock,
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Name           string          `json:"name" validate:"required,min=2,max=50"`
	Email          string          `json:"email" validate:"required,email"`
	Password       string          `json:"password" validate:"required,min=6,password"`
	Phone          string          `json:"phone" validate:"omitempty,max=20"`
	WhatsAppNumber string          `json:"whatsappNumber" validate:"omitempty,max=20"`
	Role           domain.Role     `json:"role" validate:"omitempty,oneof=customer dealer"`
	BusinessName   string          `json:"businessName" validate:"omitempty,max=100"`
	Address        *domain.Address `json:"address"`
}

// ProfileInput carries the editable profile fields; nil leaves a field as is.
type ProfileInput struct {
	Name           *string         `json:"name" validate:"omitempty,min=2,max=50"`
	Phone          *string         `json:"phone" validate:"omitempty,max=20"`
	WhatsAppNumber *string         `json:"whatsappNumber" validate:"omitempty,max=20"`
	BusinessName   *string         `json:"businessName" validate:"omitempty,max=100"`
	Address        *domain.Address `json:"address"`
}

// AuthResult is a signed-in session.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

type pendingRegistration struct {
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"passwordHash"`
	Phone          string          `json:"phone,omitempty"`
	WhatsAppNumber string          `json:"whatsappNumber,omitempty"`
	Role           domain.Role     `json:"role"`
	BusinessName   string          `json:"businessName,omitempty"`
	Address        *domain.Address `json:"address,omitempty"`
	Code           string          `json:"code"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type passwordReset struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func codesMatch(expected, given string) bool {
	given = strings.ToUpper(strings.TrimSpace(given))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

// Register holds the account as pending and emails a verification code. The
// account is created only once the code is confirmed.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) error {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return err
	}
	if input.Role == "" {
		input.Role = domain.RoleCustomer
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return apperrors.NewConflict("User already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	code, err := auth.NewVerificationCode()
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	pending := pendingRegistration{
		Name:           input.Name,
		Email:          input.Email,
		PasswordHash:   hash,
		Phone:          strings.TrimSpace(input.Phone),
		WhatsAppNumber: strings.TrimSpace(input.WhatsAppNumber),
		Role:           input.Role,
		BusinessName:   strings.TrimSpace(input.BusinessName),
		Address:        input.Address,
		Code:           code,
		CreatedAt:      s.now().UTC(),
	}
	key := pendingKeyPrefix + input.Email
	stored, err := ttlstore.PutJSONIfAbsent(ctx, s.store, key, pending, s.pendingTTL)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !stored {
		return apperrors.NewConflict("Email verification already pending. Please check your email.")
	}

	if err := s.sendCode(ctx, input.Email, notify.KindVerification, input.Name, code); err != nil {
		_ = s.store.Delete(context.WithoutCancel(ctx), key)
		return err
	}
	return nil
}

// ResendVerification issues a fresh code for a pending registration.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.validator.Var("email", email, "required,email"); err != nil {
		return err
	}
	key := pendingKeyPrefix + email
	pending, ok, err := ttlstore.GetJSON[pendingRegistration](ctx, s.store, key)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !ok {
		if _, err := s.users.GetByEmail(ctx, email); err == nil {
			return apperrors.NewFieldValidationError("email", "Email is already verified")
		}
		return apperrors.NewNotFound("Pending registration")
	}

	code, err := auth.NewVerificationCode()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	pending.Code = code
	pending.CreatedAt = s.now().UTC()
	if err := ttlstore.PutJSON(ctx, s.store, key, pending, s.pendingTTL); err != nil {
		return apperrors.NewInternalError(err)
	}
	return s.sendCode(ctx, email, notify.KindVerification, pending.Name, code)
}

// VerifyEmail confirms a pending registration and signs the new user in.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*AuthResult, error) {
	email = normalizeEmail(email)
	key := pendingKeyPrefix + email
	pending, ok, err := ttlstore.GetJSON[pendingRegistration](ctx, s.store, key)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !ok {
		return nil, apperrors.NewFieldValidationError("email", "No pending registration found for this email")
	}
	if !codesMatch(pending.Code, code) {
		return nil, apperrors.NewFieldValidationError("verificationToken", "Invalid verification code")
	}

	ctx = context.WithoutCancel(ctx)
	now := s.now().UTC()
	user := &domain.User{
		ID:              uuid.NewString(),
		Name:            pending.Name,
		Email:           pending.Email,
		Phone:           pending.Phone,
		WhatsAppNumber:  pending.WhatsAppNumber,
		PasswordHash:    pending.PasswordHash,
		Role:            pending.Role,
		BusinessName:    pending.BusinessName,
		Address:         pending.Address,
		IsEmailVerified: true,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("User already exists")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("pending registration cleanup failed", zap.Error(err))
	}
	return s.issue(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated("Invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthenticated("Account is deactivated")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated("Invalid credentials")
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user.LastLogin = &now
	return s.issue(user)
}

// ForgotPassword emails a six digit reset code.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.validator.Var("email", email, "required,email"); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("User")
		}
		return apperrors.NewInternalError(err)
	}

	code, err := auth.NewResetCode()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	key := resetKeyPrefix + email
	if err := ttlstore.PutJSON(ctx, s.store, key, passwordReset{UserID: user.ID, Code: code}, s.resetTTL); err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.sendCode(ctx, email, notify.KindPasswordReset, user.Name, code); err != nil {
		_ = s.store.Delete(context.WithoutCancel(ctx), key)
		return err
	}
	return nil
}

// ResetPassword replaces the password when the reset code matches.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := s.validator.Var("password", newPassword, "required,min=6,password"); err != nil {
		return err
	}
	key := resetKeyPrefix + email
	reset, ok, err := ttlstore.GetJSON[passwordReset](ctx, s.store, key)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !ok || !codesMatch(reset.Code, code) {
		return apperrors.NewFieldValidationError("resetToken", "Invalid or expired reset code")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.users.UpdatePassword(ctx, reset.UserID, hash, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("User")
		}
		return apperrors.NewInternalError(err)
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("password reset cleanup failed", zap.Error(err))
	}
	return nil
}

// Profile returns the caller's account.
func (s *AuthService) Profile(_ context.Context, actor *domain.User) (*domain.User, error) {
	if err := auth.RequireActive(actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// UpdateProfile edits the caller's contact details.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *domain.User, input ProfileInput) (*domain.User, error) {
	if err := auth.RequireActive(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	updated := *actor
	if input.Name != nil {
		updated.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		updated.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.WhatsAppNumber != nil {
		updated.WhatsAppNumber = strings.TrimSpace(*input.WhatsAppNumber)
	}
	if input.BusinessName != nil {
		updated.BusinessName = strings.TrimSpace(*input.BusinessName)
	}
	if input.Address != nil {
		updated.Address = input.Address
	}
	updated.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return &updated, nil
}

// ChangePassword verifies the current password before storing a new one.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	if err := auth.RequireActive(actor); err != nil {
		return err
	}
	if err := s.validator.Var("password", newPassword, "required,min=6,password"); err != nil {
		return err
	}
	if err := auth.ComparePassword(actor.PasswordHash, currentPassword); err != nil {
		return apperrors.NewFieldValidationError("currentPassword", "Current password is incorrect")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, actor.ID, hash, s.now().UTC()); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: exp, User: user}, nil
}

// sendCode delivers a code by email. Unlike complaint notifications the
// caller depends on this delivery, so a failure is returned.
func (s *AuthService) sendCode(ctx context.Context, email string, kind notify.TemplateKind, name, code string) error {
	if s.notifier == nil {
		return apperrors.NewUpstreamChannelFailure(string(notify.ChannelEmail), notify.ErrChannelNotConfigured)
	}
	outcome := s.notifier.Send(ctx, notify.ChannelEmail, email, kind, notify.TemplateData{RecipientName: name, Code: code})
	if outcome.Status != notify.OutcomeSent {
		return apperrors.NewUpstreamChannelFailure(string(notify.ChannelEmail), outcome.Err)
	}
	return nil
}
