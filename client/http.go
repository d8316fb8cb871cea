package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// apiError is the backend's error body shape.
type apiError struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

// doJSON performs a JSON request with the given method, path, payload, and result.
// It handles marshaling the payload, attaching the bearer token, executing the
// request, and unmarshaling the response. If result is nil, the response body
// is not decoded.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, result interface{}) error {
	url := fmt.Sprintf("%s%s", c.baseURL, path)

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func decodeJSON(r io.Reader, v interface{}) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// authorize attaches the bearer token when a session is present.
func (c *Client) authorize(req *http.Request) {
	if c.session == nil {
		return
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// checkStatus turns non-2xx responses into errors. A 401 additionally
// invalidates the local session so stale tokens are not retried forever.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.session != nil {
			c.session.Invalidate()
		}
		return fmt.Errorf("%w: session expired, please log in again", ErrUnauthorized)
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	var apiErr apiError
	if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("API returned %d: %s", resp.StatusCode, string(bodyBytes))
}
