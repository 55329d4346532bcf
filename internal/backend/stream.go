// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// DoneMarker is the payload that ends an /ask stream.
const DoneMarker = "[DONE]"

// =============================================================================
// FRAMES
// =============================================================================

// FrameKind tags a Frame.
type FrameKind int

const (
	// FrameContent carries an incremental piece of answer text.
	FrameContent FrameKind = iota
	// FrameError carries a backend-reported error; the stream is over.
	FrameError
	// FrameMeta carries server metadata (thread id, title).
	FrameMeta
	// FrameDone is the completion marker.
	FrameDone
	// FrameMalformed is a payload that did not parse; callers log and skip it.
	FrameMalformed
)

// String returns the kind name for logs.
func (k FrameKind) String() string {
	switch k {
	case FrameContent:
		return "content"
	case FrameError:
		return "error"
	case FrameMeta:
		return "meta"
	case FrameDone:
		return "done"
	case FrameMalformed:
		return "malformed"
	}
	return fmt.Sprintf("FrameKind(%d)", int(k))
}

// Meta is the server's {"meta": {...}} frame.
type Meta struct {
	ThreadID ID     `json:"thread_id"`
	Title    string `json:"title"`
}

// Frame is one decoded event of an /ask stream.
type Frame struct {
	Kind    FrameKind
	Content string
	Error   string
	Meta    Meta
	// Raw holds the undecoded payload of a malformed frame.
	Raw string
}

// Terminal reports whether no further frames follow this one.
func (f Frame) Terminal() bool {
	return f.Kind == FrameDone || f.Kind == FrameError
}

type framePayload struct {
	Content *string `json:"content"`
	Error   *string `json:"error"`
	Meta    *Meta   `json:"meta"`
}

// ParseFrame decodes one event payload. It never fails: anything that is not
// the done marker or a recognised JSON object comes back as FrameMalformed.
// An empty error string is not an error.
func ParseFrame(data []byte) Frame {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == DoneMarker {
		return Frame{Kind: FrameDone}
	}

	var p framePayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Frame{Kind: FrameMalformed, Raw: string(data)}
	}
	switch {
	case p.Error != nil && *p.Error != "":
		return Frame{Kind: FrameError, Error: *p.Error}
	case p.Content != nil:
		return Frame{Kind: FrameContent, Content: *p.Content}
	case p.Meta != nil:
		return Frame{Kind: FrameMeta, Meta: *p.Meta}
	}
	return Frame{Kind: FrameMalformed, Raw: string(data)}
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses server-sent events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a reader over r.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent returns the next event's type and data. Multi-line data fields
// are joined with "\n". Comments and id/retry fields are ignored. It returns
// io.EOF once the stream ends with no pending data.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", nil, err
		}
		atEOF := errors.Is(err, io.EOF)

		line = bytes.TrimRight(line, "\r\n")
		switch {
		case len(line) == 0:
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[len("data:"):]
			if len(data) > 0 && data[0] == ' ' {
				data = data[1:]
			}
			dataLines = append(dataLines, append([]byte(nil), data...))
		}

		if atEOF {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			return "", nil, io.EOF
		}
	}
}

// =============================================================================
// STREAM
// =============================================================================

// Stream is an open /ask response.
type Stream struct {
	body   io.ReadCloser
	reader *SSEReader
	cancel context.CancelFunc

	closeOnce sync.Once
	mu        sync.Mutex
	done      bool
}

// Next blocks for the next frame. After a terminal frame it returns io.EOF.
// A connection that ends before the done marker yields ErrStreamClosed.
func (s *Stream) Next() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return Frame{}, io.EOF
	}
	for {
		_, data, err := s.reader.ReadEvent()
		if err != nil {
			s.done = true
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, ErrStreamClosed
			}
			return Frame{}, fmt.Errorf("read stream: %w", err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		frame := ParseFrame(data)
		if frame.Terminal() {
			s.done = true
		}
		return frame, nil
	}
}

// Close aborts the request and releases the connection. Safe to call more
// than once and concurrently with Next.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}

// Ask opens GET /ask?question=&thread_id= as an event stream. The returned
// Stream must be closed. Cancelling ctx also ends it.
func (c *Client) Ask(ctx context.Context, question string, thread ID) (*Stream, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	query := url.Values{"question": {question}}
	if !thread.IsZero() {
		query.Set("thread_id", thread.String())
	}

	streamCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.endpoint("/ask", query), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build ask request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open ask stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		return nil, errorFromResponse(resp)
	}

	return &Stream{
		body:   resp.Body,
		reader: NewSSEReader(resp.Body),
		cancel: cancel,
	}, nil
}

// Collect reads a stream to completion and returns the concatenated content.
// Backend error frames and early closes come back as *StreamError carrying
// the partial text. onContent, when set, sees every content piece.
func Collect(s *Stream, onContent func(string)) (string, error) {
	var full strings.Builder
	for {
		frame, err := s.Next()
		if err != nil {
			return full.String(), &StreamError{Partial: full.String(), Err: err}
		}
		switch frame.Kind {
		case FrameContent:
			full.WriteString(frame.Content)
			if onContent != nil {
				onContent(frame.Content)
			}
		case FrameError:
			return full.String(), &StreamError{Partial: full.String(), Err: errors.New(frame.Error)}
		case FrameDone:
			return full.String(), nil
		}
	}
}
