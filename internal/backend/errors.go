// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/cola-tui/internal/util"
)

// Sentinel errors for common failure modes.
var (
	// ErrUnauthorized means the session cookie is missing or expired.
	ErrUnauthorized = errors.New("not logged in: session cookie missing or expired")

	// ErrNotFound means the thread or document does not exist or is not ours.
	ErrNotFound = errors.New("not found")

	// ErrStreamClosed means the /ask stream ended without the [DONE] marker.
	ErrStreamClosed = errors.New("stream closed before completion")

	// ErrNoThreadCreated means POST /threads answered without a thread_id.
	ErrNoThreadCreated = errors.New("server did not return a thread id")

	// ErrNoTitle means /generate_title answered without a title.
	ErrNoTitle = errors.New("server did not return a title")

	// ErrEmptyQuestion is returned when asking with blank text.
	ErrEmptyQuestion = errors.New("question is empty")
)

// APIError is a non-success response from the server.
type APIError struct {
	Status  int
	Message string
	Path    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Path, e.Status)
}

// Unwrap maps well-known statuses to sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// StreamError wraps a failure that happened mid-stream along with the text
// received before it.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error after %d bytes: %v", len(e.Partial), e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// errorFromResponse builds an APIError, pulling the server's {"error": ...}
// message when the body is JSON and falling back to the raw text.
func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode, Path: resp.Request.URL.Path}

	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		if payload.Detail != "" {
			apiErr.Message += " (" + payload.Detail + ")"
		}
	} else {
		apiErr.Message = util.Truncate(strings.TrimSpace(string(body)), 300)
	}
	return apiErr
}
