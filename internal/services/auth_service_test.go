package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"realestate/internal/models"
	"realestate/internal/repositories"
	"realestate/internal/services"
	"realestate/internal/validation"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test_jwt_secret"

var admin = &models.AuthUser{ID: "uid-1", Email: "admin@example.com"}

func newAuthService(t *testing.T) (*services.AuthService, *MockAuthenticator, *repositories.InMemorySessionStore) {
	t.Helper()
	authenticator := new(MockAuthenticator)
	sessions := repositories.NewInMemorySessionStore()
	return services.NewAuthService(authenticator, sessions, testJWTSecret, 0), authenticator, sessions
}

func TestAuthService_Login(t *testing.T) {
	service, authenticator, sessions := newAuthService(t)
	authenticator.On("Authenticate", mock.Anything, "admin@example.com", "secret123").Return(admin, nil).Once()

	result, err := service.Login(context.Background(), "admin@example.com", "secret123")

	require.NoError(t, err)
	assert.Equal(t, *admin, result.User)
	assert.WithinDuration(t, time.Now().Add(services.DefaultSessionTTL), result.ExpiresAt, 5*time.Second)

	claims, err := service.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims["user_id"])
	assert.Equal(t, "admin@example.com", claims["email"])

	sid, _ := claims["sid"].(string)
	session, err := sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", session.UserID)
	assert.True(t, service.IsUserAuthenticated(context.Background(), result.Token))
}

func TestAuthService_Login_FormValidation(t *testing.T) {
	service, authenticator, _ := newAuthService(t)

	_, err := service.Login(context.Background(), "not-an-email", "secret")
	assertServiceError(t, err, services.KindValidation, validation.MsgEmailInvalid)

	_, err = service.Login(context.Background(), "admin@example.com", "")
	assertServiceError(t, err, services.KindValidation, validation.MsgPasswordMissing)

	authenticator.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Login_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind services.ErrorKind
		msg  string
	}{
		{"user not found", &services.ProviderError{Code: services.CodeUserNotFound}, services.KindAuth, services.MsgUserNotFound},
		{"invalid credential", &services.ProviderError{Code: services.CodeInvalidCredential}, services.KindAuth, services.MsgInvalidCredentials},
		{"other provider code", &services.ProviderError{Code: services.CodeTooManyRequests}, services.KindAuth, services.MsgInvalidCredentials},
		{"not a provider error", errors.New("network down"), services.KindInternal, services.MsgAuthUnexpected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service, authenticator, _ := newAuthService(t)
			authenticator.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			_, err := service.Login(context.Background(), "admin@example.com", "secret123")

			assertServiceError(t, err, tc.kind, tc.msg)
		})
	}
}

func TestAuthService_IsSessionExpired(t *testing.T) {
	service, _, sessions := newAuthService(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	service.SetClock(func() time.Time { return now })

	assert.True(t, service.IsSessionExpired(ctx, "unknown"), "no login time means expired")

	fresh := models.Session{ID: "fresh", LoginTime: now.Add(-services.DefaultSessionTTL + time.Millisecond)}
	require.NoError(t, sessions.Save(ctx, fresh, now.Add(time.Hour)))
	assert.False(t, service.IsSessionExpired(ctx, "fresh"))

	stale := models.Session{ID: "stale", LoginTime: now.Add(-services.DefaultSessionTTL)}
	require.NoError(t, sessions.Save(ctx, stale, now))
	assert.True(t, service.IsSessionExpired(ctx, "stale"), "exactly seven days is expired")

	_, err := sessions.Get(ctx, "stale")
	assert.ErrorIs(t, err, repositories.ErrSessionNotFound, "expired sessions are signed out")
}

func TestAuthService_CheckSession(t *testing.T) {
	service, authenticator, sessions := newAuthService(t)
	ctx := context.Background()
	authenticator.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).Return(admin, nil)

	result, err := service.Login(ctx, "admin@example.com", "secret123")
	require.NoError(t, err)

	session, err := service.CheckSession(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", session.Email)

	require.NoError(t, service.Logout(ctx, session.ID))
	_, err = service.CheckSession(ctx, result.Token)
	assertServiceError(t, err, services.KindAuth, services.MsgSessionExpired)

	_, err = service.CheckSession(ctx, "garbage")
	assertServiceError(t, err, services.KindAuth, services.MsgUnauthorized)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sid": "x", "exp": time.Now().Add(time.Hour).Unix()})
	forgedToken, _ := forged.SignedString([]byte("other_secret"))
	assert.False(t, service.IsUserAuthenticated(ctx, forgedToken))

	_, err = sessions.Get(ctx, session.ID)
	assert.Error(t, err)
}

func TestAuthService_CheckSession_TokenPastSessionTTL(t *testing.T) {
	service, authenticator, sessions := newAuthService(t)
	ctx := context.Background()
	authenticator.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).Return(admin, nil)

	signedIn := time.Now().Add(-services.DefaultSessionTTL - time.Hour)
	service.SetClock(func() time.Time { return signedIn })
	result, err := service.Login(ctx, "admin@example.com", "secret123")
	require.NoError(t, err)
	service.SetClock(time.Now)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(result.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.Error(t, err, "token exp has already passed")
	sid, _ := claims["sid"].(string)
	require.NotEmpty(t, sid)

	_, err = service.CheckSession(ctx, result.Token)
	assertServiceError(t, err, services.KindAuth, services.MsgSessionExpired)

	_, err = sessions.Get(ctx, sid)
	assert.ErrorIs(t, err, repositories.ErrSessionNotFound, "expired session is signed out")
}

func TestAuthService_CheckSession_ExpiredForgedToken(t *testing.T) {
	service, _, sessions := newAuthService(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, sessions.Save(ctx, models.Session{ID: "sid-live", LoginTime: now}, now.Add(time.Hour)))

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sid": "sid-live", "exp": now.Add(-time.Hour).Unix()})
	forgedToken, err := forged.SignedString([]byte("other_secret"))
	require.NoError(t, err)

	_, err = service.CheckSession(ctx, forgedToken)
	assertServiceError(t, err, services.KindAuth, services.MsgUnauthorized)

	_, err = sessions.Get(ctx, "sid-live")
	assert.NoError(t, err, "a forged token cannot sign anyone out")
}

func TestAuthService_PurgeExpiredSessions(t *testing.T) {
	service, _, sessions := newAuthService(t)
	ctx := context.Background()
	now := time.Now()
	service.SetClock(func() time.Time { return now })

	require.NoError(t, sessions.Save(ctx, models.Session{ID: "a", LoginTime: now.Add(-8 * 24 * time.Hour)}, now))
	require.NoError(t, sessions.Save(ctx, models.Session{ID: "b", LoginTime: now.Add(-time.Hour)}, now.Add(time.Hour)))

	removed, err := service.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestLocalAuthenticator(t *testing.T) {
	users := repositories.NewInMemoryUserRepository()
	local := services.NewLocalAuthenticator(users)
	ctx := context.Background()

	require.NoError(t, local.EnsureAdmin(ctx, "admin@example.com", "secret123"))
	require.NoError(t, local.EnsureAdmin(ctx, "admin@example.com", "ignored"), "seeding twice is a no-op")

	user, err := local.Authenticate(ctx, "admin@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)

	_, err = local.Authenticate(ctx, "admin@example.com", "wrong")
	var perr *services.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, services.CodeInvalidCredential, perr.Code)

	_, err = local.Authenticate(ctx, "nobody@example.com", "secret123")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, services.CodeUserNotFound, perr.Code)
}

func TestLocalAuthenticator_EnsureAdminRejectsBadAccount(t *testing.T) {
	users := repositories.NewInMemoryUserRepository()
	local := services.NewLocalAuthenticator(users)
	ctx := context.Background()

	err := local.EnsureAdmin(ctx, "not-an-email", "secret123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email is not valid")

	err = local.EnsureAdmin(ctx, "admin@example.com", "12345")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password must be at least 6 characters long")

	_, err = users.GetByEmail(ctx, "admin@example.com")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound, "nothing is seeded")
}
