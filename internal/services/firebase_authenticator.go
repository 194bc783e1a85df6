package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"realestate/internal/models"
)

// identityErrors maps Identity Toolkit error messages to provider codes.
var identityErrors = map[string]string{
	"EMAIL_NOT_FOUND":             CodeUserNotFound,
	"INVALID_PASSWORD":            CodeInvalidCredential,
	"INVALID_LOGIN_CREDENTIALS":   CodeInvalidCredential,
	"INVALID_EMAIL":               CodeInvalidCredential,
	"USER_DISABLED":               CodeUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER": CodeTooManyRequests,
}

// PasswordVerifier exchanges an email and password for an ID token.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) (string, error)
}

// TokenVerifier checks ID tokens, like *auth.Client does.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthenticator signs administrators in with Firebase email/password
// accounts and verifies the resulting ID token with the Admin SDK.
type FirebaseAuthenticator struct {
	passwords PasswordVerifier
	tokens    TokenVerifier
}

func NewFirebaseAuthenticator(passwords PasswordVerifier, tokens TokenVerifier) *FirebaseAuthenticator {
	return &FirebaseAuthenticator{passwords: passwords, tokens: tokens}
}

// Authenticate implements Authenticator.
func (a *FirebaseAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.AuthUser, error) {
	idToken, err := a.passwords.VerifyPassword(ctx, email, password)
	if err != nil {
		return nil, providerError(err)
	}

	token, err := a.tokens.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, &ProviderError{Code: CodeInvalidCredential, Err: err}
	}

	userEmail := email
	if claimed, ok := token.Claims["email"].(string); ok && claimed != "" {
		userEmail = claimed
	}
	return &models.AuthUser{ID: token.UID, Email: userEmail}, nil
}

// providerError classifies an Identity Toolkit failure. Errors that are not
// API errors are returned unchanged.
func providerError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	// Messages look like "TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled...".
	reason := strings.TrimSpace(strings.SplitN(apiErr.Message, ":", 2)[0])
	code, ok := identityErrors[reason]
	if !ok {
		code = "auth/" + strings.ToLower(strings.ReplaceAll(reason, "_", "-"))
	}
	return &ProviderError{Code: code, Err: err}
}

// IdentityToolkit is a PasswordVerifier over the Identity Toolkit REST API.
type IdentityToolkit struct {
	service *identitytoolkit.Service
}

// NewIdentityToolkit creates a client authenticated with the web API key.
func NewIdentityToolkit(ctx context.Context, apiKey string) (*IdentityToolkit, error) {
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit client: %w", err)
	}
	return &IdentityToolkit{service: svc}, nil
}

// VerifyPassword implements PasswordVerifier.
func (t *IdentityToolkit) VerifyPassword(ctx context.Context, email, password string) (string, error) {
	resp, err := t.service.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return resp.IdToken, nil
}
