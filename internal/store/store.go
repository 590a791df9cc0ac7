// Package store defines the seam between the repositories and the remote
// data service (a PostgREST/GoTrue style backend).
//
// The repositories only ever talk to a Client. Two implementations exist:
//
//   - store/rest: the real backend over HTTP
//   - store/sqlite: an embedded stand-in for local development and tests
//
// A Client owns the process-wide session ("who is signed in"). It is created
// once at startup and shared by reference; nothing below re-creates it.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Filter restricts a select or update to rows whose Column equals Value.
// Multiple filters are ANDed.
type Filter struct {
	Column string
	Value  string
}

// Eq builds an equality filter.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Fields is the column set written by an Update. Values are JSON-encoded
// by the client, except ServerTime.
type Fields map[string]any

type serverTime struct{}

// ServerTime, used as a Fields value, stamps the column with the store's
// own clock at write time.
var ServerTime = serverTime{}

// IsServerTime reports whether v is the ServerTime sentinel.
func IsServerTime(v any) bool {
	_, ok := v.(serverTime)
	return ok
}

// Credentials is an email/password pair.
type Credentials struct {
	Email    string
	Password string
}

// Session is an authenticated identity held by a Client.
type Session struct {
	UserID uuid.UUID
	Email  string
	Token  *oauth2.Token
}

// Clone returns a deep copy, so callers cannot mutate a client's session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Token != nil {
		tok := *s.Token
		c.Token = &tok
	}
	return &c
}

// Expired reports whether the access token is past its expiry.
// A session without expiry never expires locally.
func (s *Session) Expired() bool {
	if s == nil || s.Token == nil || s.Token.Expiry.IsZero() {
		return false
	}
	return time.Now().After(s.Token.Expiry)
}

// Client is the remote store surface consumed by the repositories.
//
// All methods that reach the backend take a context and block until the
// round trip resolves. Errors wrap the apperror sentinels.
type Client interface {
	// Select returns the raw JSON records of collection matching filters.
	Select(ctx context.Context, collection string, filters ...Filter) ([]json.RawMessage, error)

	// Update writes fields to every row of collection matching filters.
	// Matching zero rows is not an error.
	Update(ctx context.Context, collection string, fields Fields, filters ...Filter) error

	// SignIn authenticates cred and makes the resulting session current.
	// On failure the previous session, if any, is kept.
	SignIn(ctx context.Context, cred Credentials) (*Session, error)

	// SignUp requests account creation. The returned session is nil when
	// the backend does not sign the new user in immediately (e.g. email
	// confirmation pending).
	SignUp(ctx context.Context, cred Credentials) (*Session, error)

	// ClearSession drops the current session. The local session is gone
	// when it returns, even if the remote logout call failed.
	ClearSession(ctx context.Context) error

	// CurrentSession inspects the local session only; it never goes to the network.
	CurrentSession() (*Session, bool)

	// Ping checks the backend is reachable and accepts the configured key.
	Ping(ctx context.Context) error
}
