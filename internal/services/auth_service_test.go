package services

import (
	"context"
	"os"
	"testing"
	"time"

	"stillpoint_backend/internal/auth"
	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/oauth"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	auth.InitJWT("test-secret", 60)
	os.Exit(m.Run())
}

const goodPassword = "Sunlit!Morning"

type authFixture struct {
	svc      AuthService
	users    *fakeUserRepo
	refresh  *fakeRefreshTokenRepo
	resets   *fakePasswordResetRepo
	mailer   *fakeEmailProvider
	verifier *fakeGoogleVerifier
}

func newAuthFixture(users ...*models.User) *authFixture {
	f := &authFixture{
		users:    newFakeUserRepo(users...),
		refresh:  newFakeRefreshTokenRepo(),
		resets:   newFakePasswordResetRepo(),
		mailer:   &fakeEmailProvider{},
		verifier: &fakeGoogleVerifier{},
	}
	f.svc = NewAuthService(f.users, f.refresh, f.resets, f.mailer, f.verifier, "https://stillpoint.example")
	return f
}

func credentialsUser(t *testing.T, emailAddr, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return &models.User{
		Email:        emailAddr,
		DisplayName:  "Test User",
		PasswordHash: hash,
		Provider:     models.ProviderCredentials,
		Role:         models.UserRoleUser,
		IsVerified:   true,
	}
}

func TestRegister_CreatesUnverifiedAccountAndSendsVerification(t *testing.T) {
	f := newAuthFixture()

	resp, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:       "new@example.com",
		Password:    goodPassword,
		DisplayName: "Newcomer",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "new@example.com", resp.User.Email)

	stored, err := f.users.FindByEmail("new@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)
	assert.Equal(t, models.ProviderCredentials, stored.Provider)
	assert.NotEmpty(t, stored.VerificationToken)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, goodPassword, stored.PasswordHash)

	require.Len(t, f.mailer.sentTo("new@example.com"), 1)
	assert.Equal(t, 1, f.refresh.count())
}

func TestRegister_RejectsWeakPassword(t *testing.T) {
	f := newAuthFixture()

	for _, password := range []string{"short", "alllowercase!", "ALLUPPERCASE!", "NoSymbolsHere1"} {
		_, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
			Email:    "new@example.com",
			Password: password,
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrWeakPassword), password)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(credentialsUser(t, "taken@example.com", goodPassword))

	_, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "taken@example.com",
		Password: goodPassword,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrEmailAlreadyExists))
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(
		credentialsUser(t, "user@example.com", goodPassword),
		&models.User{
			Email:    "oauth-only@example.com",
			Provider: models.ProviderGoogle,
			Role:     models.UserRoleUser,
		},
	)

	t.Run("success", func(t *testing.T) {
		resp, err := f.svc.Login(context.Background(), &dto.LoginRequest{
			Email:    "user@example.com",
			Password: goodPassword,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)

		claims, err := auth.ParseToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", claims.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), &dto.LoginRequest{
			Email:    "user@example.com",
			Password: "Wrong!Password",
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidCredentials))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), &dto.LoginRequest{
			Email:    "ghost@example.com",
			Password: goodPassword,
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidCredentials))
	})

	t.Run("oauth-only account has no password", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), &dto.LoginRequest{
			Email:    "oauth-only@example.com",
			Password: goodPassword,
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidCredentials))
	})
}

func TestGoogleLogin_CreatesAccountOnFirstSight(t *testing.T) {
	f := newAuthFixture()
	f.verifier.identity = &oauth.GoogleIdentity{Email: "google@example.com"}

	resp, err := f.svc.GoogleLogin(context.Background(), &dto.GoogleLoginRequest{IDToken: "token"})
	require.NoError(t, err)
	assert.Equal(t, "google@example.com", resp.User.Email)

	stored, err := f.users.FindByEmail("google@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderGoogle, stored.Provider)
	assert.True(t, stored.IsVerified)
	assert.Empty(t, stored.PasswordHash)
}

func TestGoogleLogin_UpgradesCredentialsAccountToMixed(t *testing.T) {
	user := credentialsUser(t, "both@example.com", goodPassword)
	user.IsVerified = false
	f := newAuthFixture(user)
	f.verifier.identity = &oauth.GoogleIdentity{Email: "both@example.com"}

	_, err := f.svc.GoogleLogin(context.Background(), &dto.GoogleLoginRequest{IDToken: "token"})
	require.NoError(t, err)

	stored, err := f.users.FindByEmail("both@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderMixed, stored.Provider)
	assert.True(t, stored.IsVerified)
	assert.NotEmpty(t, stored.PasswordHash, "credentials login keeps working")
}

func TestGoogleLogin_InvalidToken(t *testing.T) {
	f := newAuthFixture()
	f.verifier.err = oauth.ErrInvalidAudience

	_, err := f.svc.GoogleLogin(context.Background(), &dto.GoogleLoginRequest{IDToken: "bad"})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}

func TestRefreshToken_RotatesOnEveryUse(t *testing.T) {
	f := newAuthFixture(credentialsUser(t, "user@example.com", goodPassword))

	first, err := f.svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: goodPassword,
	})
	require.NoError(t, err)

	second, err := f.svc.RefreshToken(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The presented token was consumed; a replay fails.
	_, err = f.svc.RefreshToken(context.Background(), first.RefreshToken)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}

func TestRefreshToken_ExpiredTokenRejected(t *testing.T) {
	user := credentialsUser(t, "user@example.com", goodPassword)
	f := newAuthFixture(user)
	require.NoError(t, f.refresh.Create(&models.RefreshToken{
		UserID:    user.ID,
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := f.svc.RefreshToken(context.Background(), "stale-token")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
	assert.Zero(t, f.refresh.count(), "expired token is dropped on sight")
}

func TestVerifyEmail(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "new@example.com",
		Password: goodPassword,
	})
	require.NoError(t, err)

	stored, err := f.users.FindByEmail("new@example.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.VerifyEmail(context.Background(), stored.VerificationToken))

	stored, err = f.users.FindByEmail("new@example.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Empty(t, stored.VerificationToken)

	assert.True(t, apperrors.Is(
		f.svc.VerifyEmail(context.Background(), "no-such-token"),
		apperrors.ErrInvalidToken,
	))
}

func TestRequestPasswordReset_DoesNotRevealAccountExistence(t *testing.T) {
	f := newAuthFixture()

	err := f.svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	assert.NoError(t, err, "the reply is identical for unknown emails")
	assert.Empty(t, f.mailer.sent)
}

func TestRequestPasswordReset_OnlyLatestTokenStaysLive(t *testing.T) {
	f := newAuthFixture(credentialsUser(t, "user@example.com", goodPassword))

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "user@example.com"))
	first := f.resets.latestFor("user@example.com")
	require.NotNil(t, first)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "user@example.com"))

	// The earlier link is dead now.
	err := f.svc.ResetPassword(context.Background(), first.Token, "Rested!Evening")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}

func TestResetPassword_IsSingleShotAndRevokesSessions(t *testing.T) {
	user := credentialsUser(t, "user@example.com", goodPassword)
	f := newAuthFixture(user)

	// An active session that must die with the reset.
	_, err := f.svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: goodPassword,
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.refresh.count())

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "user@example.com"))
	reset := f.resets.latestFor("user@example.com")
	require.NotNil(t, reset)

	const newPassword = "Rested!Evening"
	require.NoError(t, f.svc.ResetPassword(context.Background(), reset.Token, newPassword))

	assert.Zero(t, f.refresh.count(), "a reset signs out all devices")

	_, err = f.svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "user@example.com",
		Password: newPassword,
	})
	assert.NoError(t, err)

	// Second redemption of the same token fails.
	err = f.svc.ResetPassword(context.Background(), reset.Token, "Another!Pass1")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidToken))
}

func TestResetPassword_RejectsWeakReplacement(t *testing.T) {
	f := newAuthFixture(credentialsUser(t, "user@example.com", goodPassword))
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "user@example.com"))
	reset := f.resets.latestFor("user@example.com")
	require.NotNil(t, reset)

	err := f.svc.ResetPassword(context.Background(), reset.Token, "weak")
	assert.True(t, apperrors.Is(err, apperrors.ErrWeakPassword))

	// The token survives a rejected attempt.
	err = f.svc.ResetPassword(context.Background(), reset.Token, "Rested!Evening")
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	user := credentialsUser(t, "user@example.com", goodPassword)
	f := newAuthFixture(user)

	t.Run("wrong current password", func(t *testing.T) {
		err := f.svc.ChangePassword(context.Background(), user.ID, "Wrong!Password", "Rested!Evening")
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidCredentials))
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, f.svc.ChangePassword(context.Background(), user.ID, goodPassword, "Rested!Evening"))

		_, err := f.svc.Login(context.Background(), &dto.LoginRequest{
			Email:    "user@example.com",
			Password: "Rested!Evening",
		})
		assert.NoError(t, err)
	})
}
