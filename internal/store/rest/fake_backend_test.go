package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/sakif/easychef/internal/auth"
)

const testAPIKey = "anon-key"

type fakeUser struct {
	id       string
	email    string
	password string
}

// fakeBackend emulates the slice of GoTrue and PostgREST the client uses.
// Rows are visible only to their owner, like the project's row-level policy.
type fakeBackend struct {
	t      *testing.T
	tokens *auth.TokenService

	mu           sync.Mutex
	users        map[string]fakeUser // by email
	refresh      map[string]string   // refresh token → email
	rows         map[string]map[string]any
	autoConfirm  bool
	tokenTTL     time.Duration
	restStatus   int // when non-zero, /rest/v1 answers with this status
	logoutStatus int

	// When set, refresh grants announce themselves on refreshStarted and
	// then wait for refreshGate to close.
	refreshStarted chan struct{}
	refreshGate    chan struct{}

	lastQuery   map[string][]string
	lastPatch   map[string]any
	lastHeaders http.Header
	logoutCalls int
	refreshes   int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()

	tokens, err := auth.NewTokenService("fake-backend-secret-0123456789")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	fb := &fakeBackend{
		t:           t,
		tokens:      tokens,
		users:       make(map[string]fakeUser),
		refresh:     make(map[string]string),
		rows:        make(map[string]map[string]any),
		autoConfirm: true,
		tokenTTL:    time.Hour,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", fb.handleToken)
	mux.HandleFunc("POST /auth/v1/signup", fb.handleSignUp)
	mux.HandleFunc("POST /auth/v1/logout", fb.handleLogout)
	mux.HandleFunc("GET /rest/v1/{$}", fb.handleRoot)
	mux.HandleFunc("GET /rest/v1/{collection}", fb.handleSelect)
	mux.HandleFunc("PATCH /rest/v1/{collection}", fb.handleUpdate)

	srv := httptest.NewServer(fb.checkAPIKey(mux))
	t.Cleanup(srv.Close)
	return fb, srv
}

// addUser registers a user with an empty profile row.
func (fb *fakeBackend) addUser(email, password string) string {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	id := uuid.NewString()
	fb.users[email] = fakeUser{id: id, email: email, password: password}
	fb.rows[id] = map[string]any{
		"user_id": id, "user_name": nil, "pantry": []any{},
		"diet": nil, "cuisines": []any{}, "updated_date": nil,
	}
	return id
}

func (fb *fakeBackend) checkAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != testAPIKey {
			writeBody(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (fb *fakeBackend) session(u fakeUser) map[string]any {
	access, expiresAt, err := fb.tokens.GenerateWithDuration(u.id, u.email, fb.tokenTTL)
	if err != nil {
		fb.t.Errorf("GenerateWithDuration: %v", err)
	}
	refresh := xid.New().String()
	fb.refresh[refresh] = u.email
	return map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    int64(fb.tokenTTL.Seconds()),
		"expires_at":    expiresAt.Unix(),
		"refresh_token": refresh,
		"user":          map[string]string{"id": u.id, "email": u.email},
	}
}

func (fb *fakeBackend) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") == "refresh_token" {
		fb.holdRefresh()
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()

	var body struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch r.URL.Query().Get("grant_type") {
	case "password":
		u, ok := fb.users[body.Email]
		if !ok || u.password != body.Password {
			writeBody(w, http.StatusBadRequest, map[string]string{
				"error": "invalid_grant", "error_description": "Invalid login credentials",
			})
			return
		}
		writeBody(w, http.StatusOK, fb.session(u))
	case "refresh_token":
		email, ok := fb.refresh[body.RefreshToken]
		if !ok {
			writeBody(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		delete(fb.refresh, body.RefreshToken)
		fb.refreshes++
		writeBody(w, http.StatusOK, fb.session(fb.users[email]))
	default:
		writeBody(w, http.StatusBadRequest, map[string]string{"msg": "unsupported grant type"})
	}
}

func (fb *fakeBackend) holdRefresh() {
	fb.mu.Lock()
	started, gate := fb.refreshStarted, fb.refreshGate
	fb.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
}

func (fb *fakeBackend) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	fb.mu.Lock()
	_, exists := fb.users[body.Email]
	fb.mu.Unlock()
	if exists {
		writeBody(w, http.StatusUnprocessableEntity, map[string]string{"msg": "User already registered"})
		return
	}
	if len(body.Password) < 6 {
		writeBody(w, http.StatusUnprocessableEntity, map[string]string{"msg": "Password should be at least 6 characters"})
		return
	}

	id := fb.addUser(body.Email, body.Password)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if !fb.autoConfirm {
		writeBody(w, http.StatusOK, map[string]string{"id": id, "email": body.Email})
		return
	}
	writeBody(w, http.StatusOK, fb.session(fb.users[body.Email]))
}

func (fb *fakeBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	fb.logoutCalls++
	fb.lastHeaders = r.Header.Clone()
	if fb.logoutStatus != 0 {
		writeBody(w, fb.logoutStatus, map[string]string{"msg": "logout failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (fb *fakeBackend) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeBody(w, http.StatusOK, map[string]string{"swagger": "2.0"})
}

// caller returns the user id of the bearer token, or "" for the anon key.
func (fb *fakeBackend) caller(r *http.Request) (string, bool) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if tok == testAPIKey {
		return "", true
	}
	claims, err := fb.tokens.Validate(tok)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

func (fb *fakeBackend) handleSelect(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	fb.lastQuery = r.URL.Query()
	fb.lastHeaders = r.Header.Clone()
	if fb.restStatus != 0 {
		writeBody(w, fb.restStatus, map[string]string{"message": "forced failure"})
		return
	}

	uid, ok := fb.caller(r)
	if !ok {
		writeBody(w, http.StatusUnauthorized, map[string]string{"message": "JWT expired"})
		return
	}

	want := strings.TrimPrefix(r.URL.Query().Get("user_id"), "eq.")
	out := []map[string]any{}
	for id, row := range fb.rows {
		if id == uid && (want == "" || want == id) {
			out = append(out, row)
		}
	}
	writeBody(w, http.StatusOK, out)
}

func (fb *fakeBackend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	fb.lastQuery = r.URL.Query()
	fb.lastHeaders = r.Header.Clone()
	if fb.restStatus != 0 {
		writeBody(w, fb.restStatus, map[string]string{"message": "forced failure"})
		return
	}

	uid, ok := fb.caller(r)
	if !ok {
		writeBody(w, http.StatusUnauthorized, map[string]string{"message": "JWT expired"})
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBody(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	fb.lastPatch = patch

	want := strings.TrimPrefix(r.URL.Query().Get("user_id"), "eq.")
	if row, ok := fb.rows[uid]; ok && want == uid {
		for k, v := range patch {
			if k == "updated_date" && v == "now()" {
				v = time.Now().UTC().Format(time.RFC3339Nano)
			}
			row[k] = v
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
