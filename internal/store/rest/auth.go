package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sakif/easychef/internal/apperror"
	"github.com/sakif/easychef/internal/auth"
	"github.com/sakif/easychef/internal/store"
)

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse is the GoTrue session payload. The sign-up endpoint returns
// either this or, when email confirmation is pending, a bare user object
// (whose id/email land in the embedded top-level fields).
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`

	ID    string `json:"id"`
	Email string `json:"email"`
}

// session converts a token payload into a store.Session. Missing user id or
// expiry are read from the access token's claims.
func (r *tokenResponse) session() (*store.Session, error) {
	if r.AccessToken == "" {
		return nil, apperror.Decode("rest: session", errors.New("response has no access token"))
	}

	var userID, email string
	if r.User != nil {
		userID, email = r.User.ID, r.User.Email
	}

	var expiry time.Time
	switch {
	case r.ExpiresAt > 0:
		expiry = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}

	if userID == "" || expiry.IsZero() {
		claims, err := auth.ReadClaims(r.AccessToken)
		if err != nil {
			return nil, apperror.Decode("rest: session", err)
		}
		if userID == "" {
			userID, email = claims.Subject, claims.Email
		}
		if expiry.IsZero() && claims.ExpiresAt != nil {
			expiry = claims.ExpiresAt.Time
		}
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.Decode("rest: session user id", err)
	}

	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	return &store.Session{
		UserID: id,
		Email:  email,
		Token: &oauth2.Token{
			AccessToken:  r.AccessToken,
			TokenType:    tokenType,
			RefreshToken: r.RefreshToken,
			Expiry:       expiry,
		},
	}, nil
}

// SignIn exchanges an email/password pair for a session (password grant).
func (c *Client) SignIn(ctx context.Context, cred store.Credentials) (*store.Session, error) {
	u := c.baseURL.JoinPath("auth", "v1", "token")
	u.RawQuery = "grant_type=password"

	req, err := c.newRequest(ctx, http.MethodPost, u, credentialsBody(cred), c.anonToken())
	if err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := c.do(req, "rest: sign in", &tr); err != nil {
		// GoTrue answers a bad credential with 400 invalid_grant.
		if errors.Is(err, apperror.ErrValidation) {
			return nil, apperror.Unauthorized(err.Error())
		}
		return nil, err
	}

	sess, err := tr.session()
	if err != nil {
		return nil, err
	}

	c.setSession(sess)
	c.logger.Info("signed in", slog.String("userID", sess.UserID.String()))
	return sess.Clone(), nil
}

// SignUp requests account creation. When the project auto-confirms users the
// response carries a session, which becomes current; otherwise the returned
// session is nil and the current one is untouched.
func (c *Client) SignUp(ctx context.Context, cred store.Credentials) (*store.Session, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL.JoinPath("auth", "v1", "signup"),
		credentialsBody(cred), c.anonToken())
	if err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := c.do(req, "rest: sign up", &tr); err != nil {
		return nil, err
	}

	if tr.AccessToken == "" {
		c.logger.Info("sign up accepted, confirmation pending", slog.String("userID", tr.ID))
		return nil, nil
	}

	sess, err := tr.session()
	if err != nil {
		return nil, err
	}

	c.setSession(sess)
	c.logger.Info("signed up", slog.String("userID", sess.UserID.String()))
	return sess.Clone(), nil
}

// ClearSession forgets the local session first, then revokes it remotely.
// The returned error only reports the remote revocation.
func (c *Client) ClearSession(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	if sess == nil || sess.Token == nil {
		return nil
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL.JoinPath("auth", "v1", "logout"), nil, sess.Token)
	if err != nil {
		return err
	}
	return c.do(req, "rest: sign out", nil)
}

// CurrentSession returns a copy of the local session. No network call.
func (c *Client) CurrentSession() (*store.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return nil, false
	}
	return c.session.Clone(), true
}

// RestoreSession makes a previously issued token pair current, e.g. one the
// app persisted itself. User id and expiry come from the token's claims.
func (c *Client) RestoreSession(accessToken, refreshToken string) (*store.Session, error) {
	tr := tokenResponse{AccessToken: accessToken, RefreshToken: refreshToken}
	sess, err := tr.session()
	if err != nil {
		return nil, err
	}
	c.setSession(sess)
	return sess.Clone(), nil
}

func (c *Client) setSession(sess *store.Session) {
	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()
}

// bearer returns the token data calls authenticate with. An expired session
// is refreshed first; without a session the anon key is used.
//
// The refresh round trip runs outside c.mu so CurrentSession and calls on a
// valid token never wait on the network. refreshMu lets only one refresh run;
// callers queued behind it pick up the session it stored.
func (c *Client) bearer(ctx context.Context) (*oauth2.Token, error) {
	sess := c.snapshot()
	if !needsRefresh(sess) {
		return c.tokenOf(sess), nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	sess = c.snapshot()
	if !needsRefresh(sess) {
		return c.tokenOf(sess), nil
	}

	fresh, err := c.refresh(ctx, sess.Token.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("rest: refreshing session: %w", err)
	}

	c.mu.Lock()
	if c.session == sess {
		c.session = fresh
		c.logger.Debug("session refreshed", slog.String("userID", fresh.UserID.String()))
	} else {
		// Signed out or replaced while the refresh was in flight.
		fresh = c.session
	}
	c.mu.Unlock()

	return c.tokenOf(fresh), nil
}

// snapshot returns the current session pointer. Sessions are replaced, never
// mutated, so the pointer is safe to read after c.mu is released.
func (c *Client) snapshot() *store.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func needsRefresh(sess *store.Session) bool {
	return sess != nil && sess.Token != nil && sess.Expired() && sess.Token.RefreshToken != ""
}

func (c *Client) tokenOf(sess *store.Session) *oauth2.Token {
	if sess == nil || sess.Token == nil {
		return c.anonToken()
	}
	tok := *sess.Token
	return &tok
}

// refresh runs the refresh-token grant. Callers hold c.refreshMu, not c.mu.
func (c *Client) refresh(ctx context.Context, refreshToken string) (*store.Session, error) {
	u := c.baseURL.JoinPath("auth", "v1", "token")
	u.RawQuery = "grant_type=refresh_token"

	req, err := c.newRequest(ctx, http.MethodPost, u, refreshBody{RefreshToken: refreshToken}, c.anonToken())
	if err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := c.do(req, "rest: refresh", &tr); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return nil, apperror.Unauthorized(err.Error())
		}
		return nil, err
	}
	return tr.session()
}
