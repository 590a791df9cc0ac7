// AuthService wraps the AuthRepository for the HTTP layer:
//
//	AuthHandler (HTTP) → AuthService (input rules) → AuthRepository (session)
//	                   ↘ PasswordService (sign-up policy)
//
// The repository answers with booleans only. AuthService checks input before
// a round trip, so the common user mistakes (blank email, short password)
// come back as validation errors the UI can show, and turns a false result
// into an apperror value.

package service

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/easychef/internal/apperror"
	"github.com/sakif/easychef/internal/auth"
	"github.com/sakif/easychef/internal/repository"
)

// AuthService handles sign-in, sign-up and sign-out.
type AuthService struct {
	sessions  repository.AuthRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(sessions repository.AuthRepository, passwords *auth.PasswordService, logger *slog.Logger) *AuthService {
	return &AuthService{
		sessions:  sessions,
		passwords: passwords,
		logger:    logger,
	}
}

// SignIn returns the signed-in user's id.
//
// A rejected attempt is apperror.ErrUnauthorized whatever the underlying
// cause; the repository has logged the real kind. The previous session, if
// any, stays current.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (uuid.UUID, error) {
	email, err := checkEmail(email)
	if err != nil {
		return uuid.Nil, err
	}
	if password == "" {
		return uuid.Nil, apperror.ValidationFailed("password", "password is required")
	}

	if !s.sessions.SignInWithEmail(ctx, email, password) {
		return uuid.Nil, apperror.Unauthorized("sign in failed")
	}

	id, ok := s.sessions.CurrentUser(ctx)
	if !ok {
		return uuid.Nil, apperror.Unauthorized("sign in did not establish a session")
	}
	return id, nil
}

// SignUp requests a new account. The returned id is uuid.Nil when the
// backend accepted the account but did not sign it in (confirmation pending).
func (s *AuthService) SignUp(ctx context.Context, email, password string) (uuid.UUID, error) {
	email, err := checkEmail(email)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.passwords.CheckPolicy(password); err != nil {
		return uuid.Nil, err
	}

	// A pending confirmation leaves any earlier session in place, so only a
	// changed user counts as signed in.
	before, _ := s.sessions.CurrentUser(ctx)

	if !s.sessions.SignUpWithEmail(ctx, email, password) {
		return uuid.Nil, apperror.ValidationFailed("email", "sign up was not accepted")
	}

	id, ok := s.sessions.CurrentUser(ctx)
	if !ok || id == before {
		id = uuid.Nil
	}
	s.logger.Info("sign up accepted", slog.Bool("signedIn", id != uuid.Nil))
	return id, nil
}

// SignOut always succeeds.
func (s *AuthService) SignOut(ctx context.Context) {
	s.sessions.SignOut(ctx)
}

// CurrentUser returns the signed-in user, or apperror.ErrUnauthorized.
func (s *AuthService) CurrentUser(ctx context.Context) (uuid.UUID, error) {
	id, ok := s.sessions.CurrentUser(ctx)
	if !ok {
		return uuid.Nil, apperror.Unauthorized("not signed in")
	}
	return id, nil
}

func checkEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperror.ValidationFailed("email", "email is not a valid address")
	}
	return email, nil
}
