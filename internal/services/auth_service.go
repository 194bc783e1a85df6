package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"realestate/internal/models"
	"realestate/internal/observability"
	"realestate/internal/repositories"
	"realestate/internal/validation"
	"realestate/pkg/logger"
)

// DefaultSessionTTL is how long a sign-in stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Identity provider error codes.
const (
	CodeUserNotFound      = "auth/user-not-found"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeUserDisabled      = "auth/user-disabled"
	CodeTooManyRequests   = "auth/too-many-requests"
)

// User-facing authentication messages.
const (
	MsgUserNotFound       = "User not found."
	MsgInvalidCredentials = "Invalid credentials."
	MsgAuthUnexpected     = "An error has occurred, please try again."
	MsgSessionExpired     = "Session expired, please sign in again."
	MsgUnauthorized       = "Invalid or expired token"
)

var providerMessages = map[string]string{
	CodeUserNotFound:      MsgUserNotFound,
	CodeInvalidCredential: MsgInvalidCredentials,
}

// ProviderError is a sign-in failure reported by the identity provider.
type ProviderError struct {
	Code string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Authenticator checks an email and password against an identity provider.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.AuthUser, error)
}

// LoginResult is returned by a successful sign-in.
type LoginResult struct {
	Token     string          `json:"token"`
	User      models.AuthUser `json:"user"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// AuthService handles sign-in, sessions and token checks.
type AuthService struct {
	authenticator Authenticator
	sessions      repositories.SessionStore
	jwtSecret     []byte
	sessionTTL    time.Duration
	now           func() time.Time
}

// NewAuthService creates a new AuthService. A non-positive sessionTTL
// selects DefaultSessionTTL.
func NewAuthService(authenticator Authenticator, sessions repositories.SessionStore, jwtSecret string, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		authenticator: authenticator,
		sessions:      sessions,
		jwtSecret:     []byte(jwtSecret),
		sessionTTL:    sessionTTL,
		now:           time.Now,
	}
}

// SetClock replaces the time source.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Login signs an administrator in, records the session and issues a token
// that expires with it.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if msg := validation.CheckEmail(email); msg != "" {
		return nil, newError(KindValidation, msg, nil)
	}
	if msg := validation.CheckPassword(password); msg != "" {
		return nil, newError(KindValidation, msg, nil)
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		observability.LoginsTotal.WithLabelValues("rejected").Inc()
		return nil, s.loginError(email, err)
	}

	loginTime := s.now()
	session := models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		LoginTime: loginTime,
	}
	expiresAt := loginTime.Add(s.sessionTTL)
	if err := s.sessions.Save(ctx, session, expiresAt); err != nil {
		logger.Log.WithError(err).Error("failed to save session")
		return nil, newError(KindInternal, MsgAuthUnexpected, err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid":     session.ID,
		"user_id": user.ID,
		"email":   user.Email,
		"iat":     loginTime.Unix(),
		"exp":     expiresAt.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, newError(KindInternal, MsgAuthUnexpected, fmt.Errorf("failed to generate token: %w", err))
	}

	observability.LoginsTotal.WithLabelValues("ok").Inc()
	logger.Log.WithField("user_id", user.ID).Info("administrator signed in")

	return &LoginResult{Token: tokenString, User: *user, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) loginError(email string, err error) *Error {
	entry := logger.Log.WithError(err).WithField("email", email)

	var perr *ProviderError
	if errors.As(err, &perr) {
		entry.WithField("code", perr.Code).Warn("sign-in rejected")
		msg, ok := providerMessages[perr.Code]
		if !ok {
			msg = MsgInvalidCredentials
		}
		return newError(KindAuth, msg, err)
	}

	entry.Error("sign-in failed")
	return newError(KindInternal, MsgAuthUnexpected, err)
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func (s *AuthService) signingKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.jwtSecret, nil
}

// expiredTokenSession returns the session ID of a correctly signed token
// whose only fault is its exp claim, or "" otherwise.
func (s *AuthService) expiredTokenSession(tokenString string, err error) string {
	var verr *jwt.ValidationError
	if !errors.As(err, &verr) || verr.Errors != jwt.ValidationErrorExpired {
		return ""
	}
	parser := &jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.Parse(tokenString, s.signingKey)
	if err != nil || !token.Valid {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sid, _ := claims["sid"].(string)
	return sid
}

// IsSessionExpired reports whether the session has no recorded login time
// or is at least one TTL old. An expired session is signed out.
func (s *AuthService) IsSessionExpired(ctx context.Context, sessionID string) bool {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repositories.ErrSessionNotFound) {
			logger.Log.WithError(err).Warn("session lookup failed")
		}
		return true
	}

	if s.now().Sub(session.LoginTime) < s.sessionTTL {
		return false
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		logger.Log.WithError(err).WithField("session_id", sessionID).Warn("failed to sign out expired session")
	}
	observability.SessionsExpiredTotal.Inc()
	return true
}

// CheckSession returns the session behind a token when the token is valid
// and the session has not expired.
func (s *AuthService) CheckSession(ctx context.Context, tokenString string) (*models.Session, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		if sid := s.expiredTokenSession(tokenString, err); sid != "" {
			s.IsSessionExpired(ctx, sid)
			return nil, newError(KindAuth, MsgSessionExpired, err)
		}
		return nil, newError(KindAuth, MsgUnauthorized, err)
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return nil, newError(KindAuth, MsgUnauthorized, errors.New("token has no session"))
	}

	if s.IsSessionExpired(ctx, sid) {
		return nil, newError(KindAuth, MsgSessionExpired, nil)
	}

	session, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, newError(KindAuth, MsgSessionExpired, err)
	}
	return session, nil
}

// IsUserAuthenticated reports whether tokenString belongs to a live session.
func (s *AuthService) IsUserAuthenticated(ctx context.Context, tokenString string) bool {
	if tokenString == "" {
		return false
	}
	_, err := s.CheckSession(ctx, tokenString)
	return err == nil
}

// Logout ends a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return newError(KindInternal, MsgAuthUnexpected, err)
	}
	logger.Log.WithField("session_id", sessionID).Info("administrator signed out")
	return nil
}

// PurgeExpiredSessions drops every session older than the TTL.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int, error) {
	removed, err := s.sessions.PurgeBefore(ctx, s.now().Add(-s.sessionTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	if removed > 0 {
		observability.SessionsExpiredTotal.Add(float64(removed))
		logger.Log.WithFields(logrus.Fields{"removed": removed}).Info("purged expired sessions")
	}
	return removed, nil
}
