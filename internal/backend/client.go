// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// =============================================================================
// SHARED HTTP CLIENTS
// =============================================================================

// sharedHTTPClient serves every bounded request so connections are pooled.
var sharedHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	},
}

// sharedStreamingClient has no overall timeout: an /ask stream lives until
// the server finishes or the caller cancels the context.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one assistant server.
type Client struct {
	baseURL     string
	cookie      string
	uploadPaths []string
	httpClient  *http.Client
	streamHTTP  *http.Client
}

// New creates a client for baseURL using the shared connection pools.
func New(baseURL string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		uploadPaths: []string{"/upload"},
		httpClient:  sharedHTTPClient,
		streamHTTP:  sharedStreamingClient,
	}
}

// WithCookie sets the Cookie header sent on every request.
func (c *Client) WithCookie(cookie string) *Client {
	c.cookie = cookie
	return c
}

// WithTimeout bounds non-streaming requests. Zero keeps the shared default.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient = &http.Client{Timeout: timeout, Transport: sharedHTTPClient.Transport}
	}
	return c
}

// WithHTTPClient replaces both underlying clients (tests use httptest clients).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamHTTP = hc
	return c
}

// WithUploadPaths sets the ordered upload endpoints. /upload is always tried first.
func (c *Client) WithUploadPaths(paths ...string) *Client {
	ordered := []string{"/upload"}
	for _, p := range paths {
		if p != "" && p != "/upload" {
			ordered = append(ordered, p)
		}
	}
	c.uploadPaths = ordered
	return c
}

// BaseURL returns the server root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cola-tui")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
}

// doJSON performs a request and decodes a JSON body into out.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	c.setHeaders(req)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// =============================================================================
// THREADS
// =============================================================================

// ListThreads returns the user's threads.
func (c *Client) ListThreads(ctx context.Context) ([]Thread, error) {
	var out threadsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/threads", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateThread creates an empty thread and returns its identifier.
func (c *Client) CreateThread(ctx context.Context, title string) (ID, error) {
	var out createThreadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/threads", nil, createThreadRequest{Title: title}, &out); err != nil {
		return "", err
	}
	if out.ThreadID.IsZero() {
		return "", ErrNoThreadCreated
	}
	return out.ThreadID, nil
}

// DeleteThread deletes a thread with its messages and scoped documents.
func (c *Client) DeleteThread(ctx context.Context, id ID) error {
	var out successResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/threads/"+url.PathEscape(id.String()), nil, nil, &out); err != nil {
		return err
	}
	return checkSuccess("/threads/"+id.String(), out)
}

// ListMessages returns the persisted history of a thread.
func (c *Client) ListMessages(ctx context.Context, id ID) ([]Message, error) {
	var out messagesResponse
	path := "/threads/" + url.PathEscape(id.String()) + "/messages"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// GenerateTitle asks the server to summarise question into a thread title.
func (c *Client) GenerateTitle(ctx context.Context, question string, thread ID) (string, error) {
	var out titleResponse
	if err := c.doJSON(ctx, http.MethodPost, "/generate_title", nil, titleRequest{Question: question, ThreadID: thread}, &out); err != nil {
		return "", err
	}
	title := strings.TrimSpace(out.Title)
	if title == "" {
		return "", ErrNoTitle
	}
	return title, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// ListDocuments returns documents, scoped to thread when it is non-empty.
func (c *Client) ListDocuments(ctx context.Context, thread ID) ([]Document, error) {
	var query url.Values
	if !thread.IsZero() {
		query = url.Values{"thread_id": {thread.String()}}
	}
	var out documentsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/my_documents", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ListSegments returns the indexed segments of a document.
func (c *Client) ListSegments(ctx context.Context, doc ID) ([]Segment, error) {
	var out segmentsResponse
	path := "/my_documents/" + url.PathEscape(doc.String()) + "/segments"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Segments, nil
}

// DeleteDocument deletes a document. The thread is sent so the server can
// check ownership and drop vectors from the right namespace.
func (c *Client) DeleteDocument(ctx context.Context, doc, thread ID) error {
	var query url.Values
	if !thread.IsZero() {
		query = url.Values{"thread_id": {thread.String()}}
	}
	path := "/my_documents/" + url.PathEscape(doc.String())
	var out successResponse
	if err := c.doJSON(ctx, http.MethodDelete, path, query, nil, &out); err != nil {
		return err
	}
	return checkSuccess(path, out)
}

func checkSuccess(path string, out successResponse) error {
	if out.Success {
		return nil
	}
	msg := out.Error
	if msg == "" {
		msg = "server reported failure"
	}
	return &APIError{Status: http.StatusOK, Message: msg, Path: path}
}
