package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/easychef/internal/config"
	"github.com/sakif/easychef/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	s, err := New(config.Config{
		Port:      8080,
		Backend:   config.BackendSQLite,
		DBPath:    ":memory:",
		JWTSecret: "server-test-secret-0123456789",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func call(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

// TestServer_EndToEnd drives the embedded backend through the public routes:
// sign up, fill the pantry, set preferences, sign out.
func TestServer_EndToEnd(t *testing.T) {
	s := newTestServer(t)

	rr := call(t, s, http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = call(t, s, http.MethodPost, "/api/auth/signup", `{"email":"cook@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = call(t, s, http.MethodPut, "/api/profile/pantry",
		`[{"ingredient_id":"egg","name":"Egg","quantity":1,"unit":"pcs"}]`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = call(t, s, http.MethodPut, "/api/profile/preferences", `{"diet":"vegetarian","cuisines":["thai"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = call(t, s, http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var p model.UserProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, []model.PantryItem{{IngredientID: "egg", Name: "Egg", Quantity: 1, Unit: "pcs"}}, p.Pantry)
	assert.Equal(t, "vegetarian", *p.Diet)
	assert.Equal(t, []string{"thai"}, p.Cuisines)
	assert.NotNil(t, p.UpdatedDate)

	rr = call(t, s, http.MethodPost, "/api/auth/signout", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = call(t, s, http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = call(t, s, http.MethodPost, "/api/auth/signin", `{"email":"cook@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = call(t, s, http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rr := call(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	call(t, s, http.MethodPost, "/api/auth/signin", `{"email":"nobody@example.com","password":"password123"}`)

	rr = call(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body,
		`easychef_repository_operations_total{operation="sign_in",outcome="unauthorized"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestNew_RESTBackendNeedsValidURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_, err := New(config.Config{
		Backend:         config.BackendREST,
		SupabaseURL:     "ftp://example.test",
		SupabaseAnonKey: "anon",
	}, logger)
	assert.Error(t, err)

	s, err := New(config.Config{
		Backend:         config.BackendREST,
		SupabaseURL:     "https://example.test",
		SupabaseAnonKey: "anon",
		HTTPTimeout:     config.DefaultHTTPTimeout,
	}, logger)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
