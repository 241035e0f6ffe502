package services

import (
	"context"
	"strings"

	apperrors "fintrack/internal/errors"
)

// authService handles login and logout against the remote backend.
type authService struct {
	backend Backend
	tokens  SessionChecker
}

// NewAuthService creates a new AuthServicer.
func NewAuthService(backend Backend, tokens SessionChecker) AuthServicer {
	return &authService{backend: backend, tokens: tokens}
}

// Login exchanges credentials for a token pair, which the backend client stores.
func (s *authService) Login(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}
	if _, err := s.backend.Login(ctx, email, password); err != nil {
		appErr := apperrors.FromBackend(err)
		if appErr.Code == apperrors.ErrUnauthorized.Code {
			return apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid email or password")
		}
		return appErr
	}
	return nil
}

// Logout forgets the stored token pair.
func (s *authService) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Status reports whether an access token is stored.
func (s *authService) Status(ctx context.Context) (*AuthStatus, error) {
	pair, err := s.tokens.Tokens(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &AuthStatus{LoggedIn: pair.AccessToken != ""}, nil
}
