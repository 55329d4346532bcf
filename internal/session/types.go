// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"time"

	"github.com/jeranaias/cola-tui/internal/backend"
)

// ThreadID identifies a thread. The zero value means no thread is selected.
type ThreadID = backend.ID

// Errors returned to callers of Submit.
var (
	// ErrEmptyQuestion rejects blank submissions.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrGenerationActive rejects a submission while any answer is streaming.
	ErrGenerationActive = errors.New("an answer is already being generated")

	// ErrAwaitingThread rejects a submission while a thread is being created
	// for the previous one.
	ErrAwaitingThread = errors.New("still creating a thread for the previous question")
)

// =============================================================================
// PRESENTATION
// =============================================================================

// NoticeLevel grades user-facing notifications.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarn
	NoticeError
)

// AnswerView is the opaque handle of one assistant answer container. The
// record owns it; the presenter decides where it hangs.
type AnswerView interface {
	SetStatus(status string)
	// SetBody replaces the whole rendered body.
	SetBody(rendered string)
	// SetError shows a failure line under whatever body is already there.
	SetError(message string)
}

// Presenter is the presentation layer the router and controller drive.
type Presenter interface {
	InputText() string
	SetInputText(text string)
	SetInputEnabled(enabled bool)
	SetThreadTitle(title string)
	Notify(level NoticeLevel, message string)

	ShowThreads(threads []backend.Thread, selected ThreadID)
	ShowThreadsError(err error)
	ShowDocuments(docs []backend.Document)
	ShowDocumentsError(err error)

	ResetSegmentPreview()
	ShowSegments(doc ThreadID, segments []backend.Segment)
	ShowSegmentsError(doc ThreadID, err error)

	// ShowHistoryLoading, ShowHistory, ShowHistoryError and ShowNoThread
	// replace the visible message area. Live answer views are parked before
	// these are called.
	ShowHistoryLoading()
	ShowHistory(messages []backend.Message)
	ShowHistoryError(err error)
	ShowNoThread()

	// AppendUserMessage adds an optimistic user node to the visible area.
	AppendUserMessage(text string)
	// NewAnswer creates a detached answer container.
	NewAnswer() AnswerView
	// Mount re-parents v to the end of the visible message area.
	Mount(v AnswerView)
	// Park re-parents v into the off-screen background holder.
	Park(v AnswerView)
	// Release drops v after its record has ended, unless it is on screen.
	Release(v AnswerView)
}

// =============================================================================
// BACKEND
// =============================================================================

// FrameStream is an open answer stream.
type FrameStream interface {
	Next() (backend.Frame, error)
	Close() error
}

// Backend is the server API the session uses.
type Backend interface {
	ListThreads(ctx context.Context) ([]backend.Thread, error)
	CreateThread(ctx context.Context, title string) (ThreadID, error)
	DeleteThread(ctx context.Context, id ThreadID) error
	ListMessages(ctx context.Context, id ThreadID) ([]backend.Message, error)
	ListDocuments(ctx context.Context, thread ThreadID) ([]backend.Document, error)
	ListSegments(ctx context.Context, doc ThreadID) ([]backend.Segment, error)
	DeleteDocument(ctx context.Context, doc, thread ThreadID) error
	GenerateTitle(ctx context.Context, question string, thread ThreadID) (string, error)
	Ask(ctx context.Context, question string, thread ThreadID) (FrameStream, error)
}

// FileUploader sends a local file into a thread. An empty thread lets the
// server choose one.
type FileUploader interface {
	UploadFile(ctx context.Context, path string, thread ThreadID) (*backend.UploadResult, error)
}

type clientBackend struct {
	*backend.Client
}

// FromClient adapts a backend.Client to Backend.
func FromClient(c *backend.Client) Backend {
	return clientBackend{Client: c}
}

func (b clientBackend) Ask(ctx context.Context, question string, thread ThreadID) (FrameStream, error) {
	s, err := b.Client.Ask(ctx, question, thread)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// =============================================================================
// CONFIG
// =============================================================================

// Config holds session behaviour settings.
type Config struct {
	// PlaceholderPrefix + thread id is the local title of a fresh thread.
	PlaceholderPrefix string
	// HistoryReloadDelay postpones the reconciling history reload after an answer.
	HistoryReloadDelay time.Duration
	// GenerateTitles asks the server for a title once per placeholder thread.
	GenerateTitles bool
	// TimezoneOffset is the whole-hour UTC offset of displayed timestamps.
	TimezoneOffset int
	// Render turns accumulated markdown into display text. Identity when nil.
	Render func(markdown string) string
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// DefaultConfig returns the stock behaviour.
func DefaultConfig() Config {
	return Config{
		PlaceholderPrefix:  "对话#",
		HistoryReloadDelay: 300 * time.Millisecond,
		GenerateTitles:     true,
		TimezoneOffset:     8,
	}
}

func (c Config) render(markdown string) string {
	if c.Render == nil {
		return markdown
	}
	return c.Render(markdown)
}

func (c Config) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
