package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"subgen/types"
)

// StreamResult is one item from a processing stream: either a decoded event
// or the reason the stream could not produce one. A decode failure arrives
// here as Err so the consumer can apply its reconnect policy; it does not
// kill the channel by itself.
type StreamResult struct {
	Event types.StreamEvent
	Err   error
}

// Stream is a live Server-Sent-Events subscription. Events() yields results
// in delivery order and is closed when the connection ends, however it ends.
// Close cancels the underlying request; it is safe to call more than once.
type Stream struct {
	events chan StreamResult
	cancel context.CancelFunc
}

// Events returns the stream's event channel.
func (s *Stream) Events() <-chan StreamResult {
	return s.events
}

// Close tears the connection down. Pending events may still drain from the
// channel until it closes.
func (s *Stream) Close() {
	s.cancel()
}

// OpenProcessingStream subscribes to progress events for the initial
// subtitle pipeline run.
func (c *Client) OpenProcessingStream(ctx context.Context, videoID, targetLanguage string, fontSize int) (*Stream, error) {
	q := url.Values{}
	q.Set("video_id", videoID)
	q.Set("target_language", targetLanguage)
	q.Set("font_size", strconv.Itoa(fontSize))
	return c.openStream(ctx, "/video/process", q)
}

// OpenRegenerateStream subscribes to progress events for a re-render with
// edited segments. The segment list travels JSON-encoded in the query, which
// is what the backend expects for this endpoint.
func (c *Client) OpenRegenerateStream(ctx context.Context, videoID string, segments []types.Segment, fontSize int, targetLanguage string) (*Stream, error) {
	encoded, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode segments: %w", err)
	}

	q := url.Values{}
	q.Set("segments", string(encoded))
	q.Set("font_size", strconv.Itoa(fontSize))
	q.Set("target_language", targetLanguage)
	return c.openStream(ctx, "/video/regenerate/"+videoID, q)
}

// openStream performs the SSE GET and hands the body to a reader goroutine.
// SSE endpoints authenticate through a token query parameter because the
// browser EventSource API this backend was built for cannot set headers.
func (c *Client) openStream(ctx context.Context, path string, q url.Values) (*Stream, error) {
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			q.Set("token", token)
		}
	}

	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.longClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if err := c.checkStatus(resp); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	s := &Stream{
		events: make(chan StreamResult),
		cancel: cancel,
	}
	go s.read(resp)
	return s, nil
}

// read scans SSE frames off the wire and decodes each data payload. The
// channel is closed when the connection drops, the server finishes, or Close
// cancels the request.
func (s *Stream) read(resp *http.Response) {
	defer close(s.events)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// Comments, event names and blank keep-alive lines are not
			// payloads.
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" {
			continue
		}

		var event types.StreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			s.events <- StreamResult{Err: fmt.Errorf("malformed stream message: %w", err)}
			continue
		}
		s.events <- StreamResult{Event: event}
	}

	if err := scanner.Err(); err != nil {
		s.events <- StreamResult{Err: fmt.Errorf("stream closed: %w", err)}
	}
}
