// Package client is the HTTP transport for the subtitle backend. It covers
// the auth routes, video upload/processing/download, and the Server-Sent-
// Events streams that carry processing progress.
package client

import (
	"errors"
	"net/http"
	"time"

	"subgen/session"
)

// ErrUnauthorized is returned when the backend rejects the session token.
// The local session has already been invalidated by the time callers see it.
var ErrUnauthorized = errors.New("unauthorized")

// ErrValidation marks requests rejected locally before any network call.
var ErrValidation = errors.New("validation failed")

// Client talks to the subtitle backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// longClient has no overall timeout; it serves SSE streams, uploads and
	// downloads, which routinely outlive the 30s budget of ordinary calls.
	// Cancellation comes from the request context instead.
	longClient *http.Client
	session    session.Provider
}

// New creates a backend client. The session provider is consulted for the
// bearer token on every call and notified on 401 responses.
func New(baseURL string, sess session.Provider) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		longClient: &http.Client{},
		session:    sess,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
