package client

import (
	"context"
	"fmt"
	"net/http"

	"subgen/types"
)

// Login authenticates with email and password and returns the fresh session.
// Persisting the token is the caller's job; the client never writes sessions.
func (c *Client) Login(ctx context.Context, email, password string) (*types.AuthResponse, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	payload := map[string]string{"email": email, "password": password}
	var resp types.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signup registers a new account and returns the fresh session.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*types.AuthResponse, error) {
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}

	payload := map[string]string{"name": name, "email": email, "password": password}
	var resp types.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Validate checks the stored token and returns the profile it belongs to.
func (c *Client) Validate(ctx context.Context) (*types.User, error) {
	var resp struct {
		User types.User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/auth/validate", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout tells the backend the session is over. The token itself is
// stateless, so this is best-effort; clearing the local session matters more.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", struct{}{}, nil)
}

// UpdateProfile changes name, email and/or password and returns the updated
// profile.
func (c *Client) UpdateProfile(ctx context.Context, update types.ProfileUpdate) (*types.User, error) {
	var resp struct {
		User    types.User `json:"user"`
		Message string     `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/auth/update-profile", update, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}
