package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"golang.org/x/oauth2"

	"github.com/sakif/easychef/internal/apperror"
	"github.com/sakif/easychef/internal/auth"
	"github.com/sakif/easychef/internal/store"
)

// SignUp creates an auth user and their empty profile row in one
// transaction, then signs the new user in (accounts are auto-confirmed).
func (db *DB) SignUp(ctx context.Context, cred store.Credentials) (*store.Session, error) {
	email, err := normalizeEmail(cred.Email)
	if err != nil {
		return nil, err
	}

	hash, err := db.passwords.Hash(cred.Password)
	if err != nil {
		return nil, err
	}

	id := uuid.New()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperror.Transport("sqlite: sign up", err)
	}
	defer tx.Rollback() // no-op after Commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO auth_users (id, email, password_hash) VALUES (?, ?, ?)`,
		id.String(), email, hash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("user", email)
		}
		return nil, apperror.Transport("sqlite: inserting auth user", err)
	}

	if err := createProfile(ctx, tx, id, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Transport("sqlite: committing sign up", err)
	}

	db.logger.Info("user signed up", slog.String("userID", id.String()))

	return db.startSession(id, email)
}

// SignIn checks the credential and makes the new session current.
// A failed attempt leaves the current session untouched.
func (db *DB) SignIn(ctx context.Context, cred store.Credentials) (*store.Session, error) {
	email, err := normalizeEmail(cred.Email)
	if err != nil {
		return nil, err
	}

	var id, hash string
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, password_hash FROM auth_users WHERE email = ?`, email,
	).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Same answer as a wrong password: don't reveal which emails exist.
			return nil, apperror.Unauthorized("invalid login credentials")
		}
		return nil, apperror.Transport("sqlite: looking up auth user", err)
	}

	if err := db.passwords.Verify(hash, cred.Password); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Decode("sqlite: parsing user id", err)
	}

	return db.startSession(userID, email)
}

// ClearSession drops the current session. It cannot fail.
func (db *DB) ClearSession(_ context.Context) error {
	db.mu.Lock()
	db.session = nil
	db.mu.Unlock()
	return nil
}

// CurrentSession returns a copy of the current session.
func (db *DB) CurrentSession() (*store.Session, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.session == nil {
		return nil, false
	}
	return db.session.Clone(), true
}

// CreateProfile inserts an empty profile row for userID if none exists.
// SignUp does this automatically; it is exported for seeding existing users.
func (db *DB) CreateProfile(ctx context.Context, userID uuid.UUID, userName *string) error {
	return createProfile(ctx, db.conn, userID, userName)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func createProfile(ctx context.Context, ex execer, userID uuid.UUID, userName *string) error {
	_, err := ex.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_profiles (user_id, user_name) VALUES (?, ?)`,
		userID.String(), userName,
	)
	if err != nil {
		return apperror.Transport("sqlite: creating profile "+userID.String(), err)
	}
	return nil
}

func (db *DB) startSession(userID uuid.UUID, email string) (*store.Session, error) {
	sess, err := db.issueSession(userID, email)
	if err != nil {
		return nil, err
	}

	db.mu.Lock()
	db.session = sess
	db.mu.Unlock()

	return sess.Clone(), nil
}

func (db *DB) issueSession(userID uuid.UUID, email string) (*store.Session, error) {
	access, expiresAt, err := db.tokens.Generate(userID.String(), email)
	if err != nil {
		return nil, fmt.Errorf("sqlite: issuing session: %w", err)
	}

	return &store.Session{
		UserID: userID,
		Email:  email,
		Token: &oauth2.Token{
			AccessToken:  access,
			TokenType:    "bearer",
			RefreshToken: xid.New().String(),
			Expiry:       expiresAt,
		},
	}, nil
}

// activeSession returns the session data calls run as. The access token is
// checked the way the hosted backend checks a bearer: an expired token is
// reissued in place, and a token this store did not sign ends the session.
func (db *DB) activeSession(ctx context.Context) (*store.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.session == nil || db.session.Token == nil {
		return nil, apperror.Unauthorized("no active session")
	}

	claims, err := db.tokens.Validate(db.session.Token.AccessToken)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		sess, err := db.issueSession(db.session.UserID, db.session.Email)
		if err != nil {
			return nil, err
		}
		db.session = sess
		db.logger.Debug("session refreshed", slog.String("userID", sess.UserID.String()))
	case err != nil:
		db.logger.Warn("dropping session with invalid token", slog.String("error", err.Error()))
		db.session = nil
		return nil, apperror.Unauthorized("session token is not valid")
	case claims.Subject != db.session.UserID.String():
		db.logger.Warn("dropping session whose token names another user",
			slog.String("userID", db.session.UserID.String()))
		db.session = nil
		return nil, apperror.Unauthorized("session token is not valid")
	}

	return db.session.Clone(), nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperror.ValidationFailed("email", "email is not a valid address")
	}
	return email, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
