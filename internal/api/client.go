// Package api is the REST client for the tienda backend. Every call
// takes a context, decorates authenticated requests with the session
// bearer token, and converts non-OK responses into *HTTPError values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tienda/internal/logging"
)

// ErrNoToken is returned when an authenticated call is attempted
// without a session token.
var ErrNoToken = errors.New("no authentication token")

// HTTPError is a non-OK backend response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// IsAuthError reports whether err is an HTTP 401 or 403 response.
func IsAuthError(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status == http.StatusUnauthorized || he.Status == http.StatusForbidden
	}
	return false
}

// TokenSource supplies the current bearer token, empty when logged out.
type TokenSource func() string

// Client talks to the tienda backend.
type Client struct {
	baseURL     string
	authBaseURL string
	http        *http.Client
	token       TokenSource
}

// NewClient builds a client. tokenSource may be nil for a client that
// only uses unauthenticated endpoints.
func NewClient(baseURL, authBaseURL string, timeout time.Duration, tokenSource TokenSource) *Client {
	if authBaseURL == "" {
		authBaseURL = baseURL
	}
	if tokenSource == nil {
		tokenSource = func() string { return "" }
	}
	return &Client{
		baseURL:     baseURL,
		authBaseURL: authBaseURL,
		http:        &http.Client{Timeout: timeout},
		token:       tokenSource,
	}
}

// errorPayload is the backend's error body shape.
type errorPayload struct {
	Message string `json:"message"`
}

// do issues one request. When bearer is non-empty it is sent as the
// Authorization token; out, when non-nil, receives the decoded body.
func (c *Client) do(ctx context.Context, method, url, bearer string, body, out interface{}) error {
	reqID := uuid.NewString()
	rl := logging.WithRequestID(logging.CategoryAPI, reqID)
	rl.Debug("%s %s", method, url)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		rl.Error("request failed: %v", err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		var ep errorPayload
		if err := json.NewDecoder(resp.Body).Decode(&ep); err == nil {
			msg = ep.Message
		}
		rl.Warn("non-OK response: %d %s", resp.StatusCode, msg)
		return &HTTPError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			rl.Error("decode failed: %v", err)
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	rl.Debug("%s %s -> %d", method, url, resp.StatusCode)
	return nil
}

// authed issues a request with the current session token.
func (c *Client) authed(ctx context.Context, method, url string, body, out interface{}) error {
	token := c.token()
	if token == "" {
		return ErrNoToken
	}
	return c.do(ctx, method, url, token, body, out)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
