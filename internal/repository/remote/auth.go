// Package remote implements the repository interfaces on top of a
// store.Client, which is either the hosted backend or the embedded store.
//
// Each capability exists twice:
//
//	SignIn(ctx, email, pw) (uuid.UUID, error)   → keeps the failure class
//	SignInWithEmail(ctx, email, pw) bool        → what the UI consumes
//
// The boolean/nil methods are thin reductions of the error-returning ones:
// they log the failure once at Warn with its kind and discard it.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/easychef/internal/apperror"
	"github.com/sakif/easychef/internal/metrics"
	"github.com/sakif/easychef/internal/repository"
	"github.com/sakif/easychef/internal/store"
)

var _ repository.AuthRepository = (*AuthRepo)(nil)

// Operation names, used as log "op" values and metric labels.
const (
	opSignIn            = "sign_in"
	opSignUp            = "sign_up"
	opSignOut           = "sign_out"
	opGetProfile        = "get_profile"
	opUpdatePantry      = "update_pantry"
	opUpdatePreferences = "update_preferences"
)

// AuthRepo manages the store client's ambient session.
//
// Sign-in, sign-up and sign-out are serialized: two sign-ins racing would
// otherwise leave whichever finished last as the session, regardless of
// which one the caller saw succeed.
type AuthRepo struct {
	client  store.Client
	metrics *metrics.Repository
	logger  *slog.Logger

	mu sync.Mutex
}

func NewAuthRepo(client store.Client, m *metrics.Repository, logger *slog.Logger) *AuthRepo {
	return &AuthRepo{
		client:  client,
		metrics: m,
		logger:  logger,
	}
}

// SignIn authenticates with email and password and returns the signed-in
// user. On failure any existing session is kept.
func (r *AuthRepo) SignIn(ctx context.Context, email, password string) (id uuid.UUID, err error) {
	defer observe(r.metrics, opSignIn, time.Now(), &err)

	cred, err := credentials(email, password)
	if err != nil {
		return uuid.Nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sess, err := r.client.SignIn(ctx, cred)
	if err != nil {
		return uuid.Nil, fmt.Errorf("signing in: %w", err)
	}
	return sess.UserID, nil
}

// SignUp requests an account. signedIn reports whether the backend also
// started a session; it is false while email confirmation is pending.
func (r *AuthRepo) SignUp(ctx context.Context, email, password string) (signedIn bool, err error) {
	defer observe(r.metrics, opSignUp, time.Now(), &err)

	cred, err := credentials(email, password)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sess, err := r.client.SignUp(ctx, cred)
	if err != nil {
		return false, fmt.Errorf("signing up: %w", err)
	}
	return sess != nil, nil
}

// SignOutErr clears the session and reports a failed remote revocation.
// The local session is gone either way.
func (r *AuthRepo) SignOutErr(ctx context.Context) (err error) {
	defer observe(r.metrics, opSignOut, time.Now(), &err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.ClearSession(ctx); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

func (r *AuthRepo) SignInWithEmail(ctx context.Context, email, password string) bool {
	id, err := r.SignIn(ctx, email, password)
	if err != nil {
		r.warn(opSignIn, err)
		return false
	}
	r.logger.Info("signed in", slog.String("userID", id.String()))
	return true
}

func (r *AuthRepo) SignUpWithEmail(ctx context.Context, email, password string) bool {
	signedIn, err := r.SignUp(ctx, email, password)
	if err != nil {
		r.warn(opSignUp, err)
		return false
	}
	r.logger.Info("sign up accepted", slog.Bool("signedIn", signedIn))
	return true
}

func (r *AuthRepo) SignOut(ctx context.Context) {
	if err := r.SignOutErr(ctx); err != nil {
		r.warn(opSignOut, err)
	}
}

// CurrentUser reads the local session; it never reaches the network.
func (r *AuthRepo) CurrentUser(_ context.Context) (uuid.UUID, bool) {
	sess, ok := r.client.CurrentSession()
	if !ok || sess.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return sess.UserID, true
}

func (r *AuthRepo) warn(op string, err error) {
	warn(r.logger, op, err)
}

func warn(logger *slog.Logger, op string, err error) {
	logger.Warn("repository operation failed",
		slog.String("op", op),
		slog.String("kind", apperror.Kind(err)),
		slog.String("error", err.Error()),
	)
}

// credentials rejects obviously unusable input before a round trip.
// The email is trimmed; the password is passed through untouched.
func credentials(email, password string) (store.Credentials, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return store.Credentials{}, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return store.Credentials{}, apperror.ValidationFailed("password", "password is required")
	}
	return store.Credentials{Email: email, Password: password}, nil
}

// observe is deferred with a pointer to the named error result so the
// final value is recorded.
func observe(m *metrics.Repository, op string, start time.Time, err *error) {
	m.Observe(op, start, *err)
}
