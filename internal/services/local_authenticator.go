package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"realestate/internal/models"
	"realestate/internal/repositories"
	"realestate/internal/validation"
	"realestate/pkg/logger"
)

// LocalAuthenticator checks credentials against bcrypt hashes kept in a
// UserRepository.
type LocalAuthenticator struct {
	users repositories.UserRepository
}

func NewLocalAuthenticator(users repositories.UserRepository) *LocalAuthenticator {
	return &LocalAuthenticator{users: users}
}

// Authenticate implements Authenticator.
func (a *LocalAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.AuthUser, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil, &ProviderError{Code: CodeUserNotFound, Err: err}
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, &ProviderError{Code: CodeInvalidCredential, Err: err}
	}
	return &models.AuthUser{ID: user.ID, Email: user.Email}, nil
}

// EnsureAdmin creates the administrator account unless one with that email
// already exists.
func (a *LocalAuthenticator) EnsureAdmin(ctx context.Context, email, password string) error {
	admin := models.User{Email: email, Password: password}
	if err := validation.ValidateUser(admin); err != nil {
		return fmt.Errorf("invalid administrator account: %s: %w", validation.FirstMessage(err, validation.DefaultMessage), err)
	}

	_, err := a.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	admin.Password = string(hashedPassword)
	if err := a.users.Create(ctx, &admin); err != nil {
		return fmt.Errorf("failed to create administrator: %w", err)
	}

	logger.Log.WithField("email", email).Info("administrator account created")
	return nil
}
