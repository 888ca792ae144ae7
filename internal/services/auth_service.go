package services

import (
	"context"
	"fmt"
	"time"

	"stillpoint_backend/internal/auth"
	"stillpoint_backend/internal/email"
	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/oauth"
	"stillpoint_backend/internal/repositories"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/pkg/apperrors"
)

// refreshTokenTTL is how long a refresh token stays redeemable. Tokens are
// rotated on every refresh.
const refreshTokenTTL = 30 * 24 * time.Hour

type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	GoogleLogin(ctx context.Context, req *dto.GoogleLoginRequest) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, emailAddr string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

type AuthServiceImpl struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	passwordResets   repositories.PasswordResetRepository
	emailProvider    email.Provider
	googleVerifier   oauth.GoogleVerifier
	siteURL          string
}

func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	passwordResets repositories.PasswordResetRepository,
	emailProvider email.Provider,
	googleVerifier oauth.GoogleVerifier,
	siteURL string,
) AuthService {
	return &AuthServiceImpl{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		passwordResets:   passwordResets,
		emailProvider:    emailProvider,
		googleVerifier:   googleVerifier,
		siteURL:          siteURL,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	verificationToken, err := auth.GenerateRandomToken()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Email:             req.Email,
		DisplayName:       req.DisplayName,
		PasswordHash:      hash,
		Provider:          models.ProviderCredentials,
		Role:              models.UserRoleUser,
		IsVerified:        false,
		VerificationToken: verificationToken,
	}

	if err := s.userRepo.Create(user); err != nil {
		if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}

	s.sendVerificationEmail(ctx, user.Email, verificationToken)

	return s.issueTokens(user)
}

func (s *AuthServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	// OAuth-only accounts have no password hash.
	if user.PasswordHash == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

// GoogleLogin signs a user in with a Google ID token, creating the account on
// first sight. A credentials account that later signs in with Google becomes
// a mixed-provider account.
func (s *AuthServiceImpl) GoogleLogin(ctx context.Context, req *dto.GoogleLoginRequest) (*dto.AuthResponse, error) {
	identity, err := s.googleVerifier.Verify(ctx, req.IDToken)
	if err != nil {
		logger.CtxWithError(ctx, "Google token verification failed", err)
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByEmail(identity.Email)
	if err != nil {
		if !apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.InternalError(err)
		}

		user = &models.User{
			Email:       identity.Email,
			DisplayName: identity.Email,
			Provider:    models.ProviderGoogle,
			Role:        models.UserRoleUser,
			IsVerified:  true, // Google already verified the address
		}
		if err := s.userRepo.Create(user); err != nil {
			return nil, apperrors.InternalError(err)
		}

		return s.issueTokens(user)
	}

	if user.Provider == models.ProviderCredentials {
		user.Provider = models.ProviderMixed
		user.IsVerified = true
		if err := s.userRepo.Update(user); err != nil {
			return nil, apperrors.InternalError(err)
		}
	}

	return s.issueTokens(user)
}

// RefreshToken rotates the refresh token: the presented token is deleted and
// a new pair is issued, so a stolen token is only good once.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	token, err := s.refreshTokenRepo.FindByToken(refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	if time.Now().After(token.ExpiresAt) {
		_ = s.refreshTokenRepo.DeleteByToken(refreshToken)
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(token.UserID)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	if err := s.refreshTokenRepo.DeleteByToken(refreshToken); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return s.issueTokens(user)
}

func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.DeleteByToken(refreshToken); err != nil {
		if apperrors.Is(err, repositories.ErrRefreshTokenNotFound) {
			return nil
		}
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.userRepo.FindByVerificationToken(token)
	if err != nil {
		return apperrors.ErrInvalidToken
	}

	if err := s.userRepo.VerifyUser(user.ID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// RequestPasswordReset issues a one-time reset token. The reply is identical
// whether or not the account exists, so the endpoint cannot be used to probe
// for registered emails.
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	user, err := s.userRepo.FindByEmail(emailAddr)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil
		}
		return apperrors.InternalError(err)
	}

	token, err := auth.GenerateRandomToken()
	if err != nil {
		return apperrors.InternalError(err)
	}

	// Only the most recently issued link should work.
	if err := s.passwordResets.InvalidateForEmail(user.Email); err != nil {
		return apperrors.InternalError(err)
	}

	reset := &models.PasswordResetToken{
		Email:     user.Email,
		Token:     token,
		ExpiresAt: time.Now().Add(models.PasswordResetTTL),
	}
	if err := s.passwordResets.Create(reset); err != nil {
		return apperrors.InternalError(err)
	}

	s.sendPasswordResetEmail(ctx, user.Email, token)

	return nil
}

func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return apperrors.ErrWeakPassword
	}

	reset, err := s.passwordResets.FindByToken(token)
	if err != nil {
		return apperrors.ErrInvalidToken
	}

	if reset.Used || time.Now().After(reset.ExpiresAt) {
		return apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByEmail(reset.Email)
	if err != nil {
		return apperrors.ErrInvalidToken
	}

	// Consume before writing the new hash; if a concurrent request got here
	// first the MarkUsed guard fails and we bail out.
	if err := s.passwordResets.MarkUsed(token); err != nil {
		return apperrors.ErrInvalidToken
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	if err := s.userRepo.UpdatePassword(user.ID, hash); err != nil {
		return apperrors.InternalError(err)
	}

	// A password reset signs out all devices.
	if err := s.refreshTokenRepo.DeleteByUserID(user.ID); err != nil {
		logger.CtxWithError(ctx, "Failed to revoke refresh tokens after reset", err, "user_id", user.ID)
	}

	return nil
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return apperrors.ErrInvalidCredentials
	}

	if user.PasswordHash == "" || !auth.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperrors.ErrInvalidCredentials
	}

	if err := auth.ValidatePassword(newPassword); err != nil {
		return apperrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	if err := s.userRepo.UpdatePassword(user.ID, hash); err != nil {
		return apperrors.InternalError(err)
	}

	return nil
}

func (s *AuthServiceImpl) issueTokens(user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := auth.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	refreshToken, err := auth.GenerateRandomToken()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := s.refreshTokenRepo.Create(&models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         dto.NewUserDTO(user),
	}, nil
}

// Email delivery is best-effort; a down SMTP server must not fail auth flows.

func (s *AuthServiceImpl) sendVerificationEmail(ctx context.Context, to, token string) {
	body, err := email.Render("email_verification", email.TemplateData{
		"VerifyURL": fmt.Sprintf("%s/verify-email?token=%s", s.siteURL, token),
	})
	if err != nil {
		logger.CtxWithError(ctx, "Failed to render verification email", err)
		return
	}

	if err := s.emailProvider.Send(&email.Message{
		To:       to,
		Subject:  "Verify your email",
		HTMLBody: body,
	}); err != nil {
		logger.CtxWithError(ctx, "Failed to send verification email", err, "to", to)
	}
}

func (s *AuthServiceImpl) sendPasswordResetEmail(ctx context.Context, to, token string) {
	body, err := email.Render("password_reset", email.TemplateData{
		"ResetURL":  fmt.Sprintf("%s/reset-password?token=%s", s.siteURL, token),
		"ExpiresIn": "15 minutes",
	})
	if err != nil {
		logger.CtxWithError(ctx, "Failed to render reset email", err)
		return
	}

	if err := s.emailProvider.Send(&email.Message{
		To:       to,
		Subject:  "Reset your password",
		HTMLBody: body,
	}); err != nil {
		logger.CtxWithError(ctx, "Failed to send reset email", err, "to", to)
	}
}
