// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// Upload posts a file as multipart form data (field "file", optional
// "thread_id"). Each configured upload path is tried in order; a non-2xx
// answer moves on to the next path, and the last failure is returned when
// all of them refuse. Auth failures stop immediately.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader, thread ID) (*UploadResult, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", name, err)
	}

	var lastErr error
	for _, path := range c.uploadPaths {
		res, err := c.uploadOnce(ctx, path, filepath.Base(name), data, thread)
		if err == nil {
			return res, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no upload paths configured")
	}
	return nil, lastErr
}

func (c *Client) uploadOnce(ctx context.Context, path, filename string, data []byte, thread ID) (*UploadResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if !thread.IsZero() {
		if err := form.WriteField("thread_id", thread.String()); err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), &body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload to %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromResponse(resp)
	}
	return parseUploadResponse(path, resp)
}

// parseUploadResponse accepts JSON ({success, error, thread_id}) or plain text.
func parseUploadResponse(path string, resp *http.Response) (*UploadResult, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	result := &UploadResult{Path: path}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var payload struct {
			UploadResult
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &payload); err == nil {
			if payload.Error != "" && !payload.Success {
				return nil, &APIError{Status: resp.StatusCode, Message: payload.Error, Path: path}
			}
			payload.UploadResult.Path = path
			return &payload.UploadResult, nil
		}
	}

	result.Success = true
	result.Text = strings.TrimSpace(string(raw))
	return result, nil
}
