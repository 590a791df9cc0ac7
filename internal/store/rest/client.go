// Package rest implements store.Client against the hosted backend: a
// PostgREST data API under /rest/v1 and a GoTrue auth API under /auth/v1.
//
// Every request carries the project's anon key in the "apikey" header. The
// Authorization header carries the signed-in user's access token, or the anon
// key when nobody is signed in; the backend's row-level policies decide what
// each of those may see.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/easychef/internal/apperror"
	"github.com/sakif/easychef/internal/store"
)

// compile-time check that *Client implements store.Client
var _ store.Client = (*Client)(nil)

// Config holds what is needed to reach a backend project.
type Config struct {
	BaseURL string // e.g. https://xyzcompany.supabase.co
	APIKey  string // anon (public) key

	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

// Client talks to the hosted backend and holds the process-wide session.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	logger  *slog.Logger

	mu      sync.RWMutex
	session *store.Session

	refreshMu sync.Mutex
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("rest: base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("rest: API key is required")
	}

	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("rest: parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("rest: base URL must be http or https, got %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL: u,
		apiKey:  cfg.APIKey,
		http:    hc,
		logger:  logger,
	}, nil
}

// Ping requests the data API root, which answers only for a valid key.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL.JoinPath("rest", "v1", "/"), nil, c.anonToken())
	if err != nil {
		return err
	}
	return c.do(req, "rest: ping", nil)
}

func (c *Client) anonToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: c.apiKey, TokenType: "bearer"}
}

// newRequest builds a request with the backend's required headers.
// body, if non-nil, is JSON-encoded.
func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body any, tok *oauth2.Token) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("rest: encoding request body: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, fmt.Errorf("rest: building request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tok.SetAuthHeader(req)

	return req, nil
}

// do sends req and decodes a 2xx JSON body into out (when out is non-nil).
// Non-2xx responses become apperror-classified errors.
func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.Transport(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Decode(op, err)
	}
	return nil
}

// apiError covers the error bodies of both APIs:
// PostgREST {"message": ...}, GoTrue {"msg": ...} or {"error_description": ...}.
type apiError struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

func (e apiError) text() string {
	for _, s := range []string{e.Message, e.Msg, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	var e apiError
	_ = json.Unmarshal(body, &e)
	text := e.text()
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}

	appErr := &apperror.AppError{
		Err:     apperror.ErrTransport,
		Message: fmt.Sprintf("%s: %s (status %d)", op, text, resp.StatusCode),
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		appErr.Err = apperror.ErrUnauthorized
	case http.StatusNotFound:
		appErr.Err = apperror.ErrNotFound
	case http.StatusConflict:
		appErr.Err = apperror.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		appErr.Err = apperror.ErrValidation
	}
	return appErr
}
