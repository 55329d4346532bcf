// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ID identifies a thread or document. The server may send it as a JSON number
// or string; it is always compared as a string. The empty ID means "none".
type ID string

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// IsZero reports whether id is empty.
func (id ID) IsZero() bool { return id == "" }

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric IDs as numbers, everything else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// =============================================================================
// RESOURCES
// =============================================================================

// Thread is one conversation in the thread list.
type Thread struct {
	ID        ID     `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Message is one persisted turn of a thread's history.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Document is an uploaded file, optionally scoped to a thread.
type Document struct {
	ID           ID     `json:"id"`
	Filename     string `json:"filename"`
	SegmentCount int    `json:"segment_count"`
	StoredAt     string `json:"stored_at,omitempty"`
	ThreadID     ID     `json:"thread_id,omitempty"`
}

// Segment is a preview of one indexed chunk of a document.
type Segment struct {
	Index    int    `json:"index"`
	VectorID string `json:"vector_id"`
	Preview  string `json:"preview"`
}

// UploadResult describes a completed upload. Servers may answer with JSON or
// arbitrary text; Text holds the latter.
type UploadResult struct {
	Path     string `json:"-"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	ThreadID ID     `json:"thread_id,omitempty"`
	Text     string `json:"-"`
}

// =============================================================================
// WIRE ENVELOPES
// =============================================================================

type threadsResponse struct {
	Items []Thread `json:"items"`
	Error string   `json:"error,omitempty"`
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
	Error    string    `json:"error,omitempty"`
}

type documentsResponse struct {
	Items []Document `json:"items"`
	Error string     `json:"error,omitempty"`
}

type segmentsResponse struct {
	Segments []Segment `json:"segments"`
	Error    string    `json:"error,omitempty"`
}

type createThreadRequest struct {
	Title string `json:"title"`
}

type createThreadResponse struct {
	ThreadID ID     `json:"thread_id"`
	Error    string `json:"error,omitempty"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type titleRequest struct {
	Question string `json:"question"`
	ThreadID ID     `json:"thread_id,omitempty"`
}

type titleResponse struct {
	Title string `json:"title"`
	Error string `json:"error,omitempty"`
}
