package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"subgen/config"
	"subgen/types"
)

// Upload sends a video file to the backend and returns the assigned video ID.
// File type and size are validated locally before any bytes move.
func (c *Client) Upload(ctx context.Context, path string) (*types.UploadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrValidation, path)
	}
	if info.Size() > config.MaxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds maximum size (500MB)", ErrValidation)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !config.IsAllowedVideoExtension(ext) {
		return nil, fmt.Errorf("%w: invalid file type %q, allowed: %s",
			ErrValidation, ext, strings.Join(config.AllowedVideoExtensions, ", "))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer file.Close()

	// Stream the multipart body through a pipe so a 500MB upload is never
	// buffered in memory.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("video", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/video/upload", pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.longClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var result types.UploadResult
	if err := decodeJSON(resp.Body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartProcessing asks the backend to begin the subtitle pipeline for an
// uploaded video. Progress is delivered separately over the SSE stream.
func (c *Client) StartProcessing(ctx context.Context, videoID, targetLanguage string, fontSize int) error {
	payload := map[string]interface{}{
		"video_id":        videoID,
		"target_language": targetLanguage,
		"font_size":       fontSize,
	}
	return c.doJSON(ctx, http.MethodPost, "/video/process", payload, nil)
}

// Status polls the backend for the current processing state of a video.
func (c *Client) Status(ctx context.Context, videoID string) (*types.StatusResponse, error) {
	var status types.StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/video/status/"+videoID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UpdateSubtitles replaces the stored segments for a video with an edited
// set, ahead of a regenerate call.
func (c *Client) UpdateSubtitles(ctx context.Context, videoID string, segments []types.Segment) error {
	if err := types.ValidateSegments(segments); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	payload := map[string]interface{}{"segments": segments}
	return c.doJSON(ctx, http.MethodPost, "/video/update_subtitles/"+videoID, payload, nil)
}

// DownloadURL builds the authenticated download location for a finished
// video. The token rides in the query because downloads are plain GET
// navigations that carry no headers.
func (c *Client) DownloadURL(videoID string) string {
	u := c.baseURL + "/video/download/" + videoID
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			u += "?token=" + url.QueryEscape(token)
		}
	}
	return u
}

// Download fetches the subtitled video and writes it to dst.
func (c *Client) Download(ctx context.Context, videoID, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(videoID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.longClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
