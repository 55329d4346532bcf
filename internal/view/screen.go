// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package view

import (
	"time"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/session"
	"github.com/jeranaias/cola-tui/internal/util"
)

// Input is the editable question field.
type Input interface {
	Value() string
	SetValue(s string)
}

// LineInput is an Input backed by a plain string.
type LineInput struct {
	text string
}

// Value implements Input.
func (l *LineInput) Value() string { return l.text }

// SetValue implements Input.
func (l *LineInput) SetValue(s string) { l.text = s }

// Notice is one user-facing message.
type Notice struct {
	Level session.NoticeLevel
	Text  string
	At    time.Time
}

// Options configures a Screen.
type Options struct {
	// Render formats assistant markdown from history.
	Render         func(string) string
	TimezoneOffset int
	Now            func() time.Time
}

// Screen implements session.Presenter over a Tree and list state.
type Screen struct {
	Tree  *Tree
	input Input
	opts  Options

	InputEnabled bool
	Title        string
	Notices      []Notice

	Threads      []backend.Thread
	Selected     session.ThreadID
	ThreadsErr   error
	Documents    []backend.Document
	DocumentsErr error

	SegmentDoc  session.ThreadID
	Segments    []backend.Segment
	SegmentsErr error
}

var _ session.Presenter = (*Screen)(nil)

// NewScreen builds a Screen on input.
func NewScreen(input Input, opts Options) *Screen {
	if opts.Render == nil {
		opts.Render = util.StripControl
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Screen{Tree: NewTree(), input: input, opts: opts, InputEnabled: true}
}

// maxNotices bounds the notice history.
const maxNotices = 50

// LastNotice returns the newest notice, if any.
func (s *Screen) LastNotice() (Notice, bool) {
	if len(s.Notices) == 0 {
		return Notice{}, false
	}
	return s.Notices[len(s.Notices)-1], true
}

// =============================================================================
// INPUT AND HEADER
// =============================================================================

func (s *Screen) InputText() string        { return s.input.Value() }
func (s *Screen) SetInputText(text string) { s.input.SetValue(text); s.Tree.bump() }

func (s *Screen) SetInputEnabled(enabled bool) {
	s.InputEnabled = enabled
	s.Tree.bump()
}

func (s *Screen) SetThreadTitle(title string) {
	s.Title = util.StripControl(title)
	s.Tree.bump()
}

func (s *Screen) Notify(level session.NoticeLevel, message string) {
	s.Notices = append(s.Notices, Notice{Level: level, Text: util.StripControl(message), At: s.opts.Now()})
	if len(s.Notices) > maxNotices {
		s.Notices = s.Notices[len(s.Notices)-maxNotices:]
	}
	s.Tree.bump()
}

// =============================================================================
// LISTS
// =============================================================================

func (s *Screen) ShowThreads(threads []backend.Thread, selected session.ThreadID) {
	s.Threads = threads
	s.Selected = selected
	s.ThreadsErr = nil
	s.Tree.bump()
}

func (s *Screen) ShowThreadsError(err error) {
	s.ThreadsErr = err
	s.Tree.bump()
}

func (s *Screen) ShowDocuments(docs []backend.Document) {
	s.Documents = docs
	s.DocumentsErr = nil
	s.Tree.bump()
}

func (s *Screen) ShowDocumentsError(err error) {
	s.Documents = nil
	s.DocumentsErr = err
	s.Tree.bump()
}

func (s *Screen) ResetSegmentPreview() {
	s.SegmentDoc = ""
	s.Segments = nil
	s.SegmentsErr = nil
	s.Tree.bump()
}

func (s *Screen) ShowSegments(doc session.ThreadID, segments []backend.Segment) {
	s.SegmentDoc = doc
	s.Segments = segments
	s.SegmentsErr = nil
	s.Tree.bump()
}

func (s *Screen) ShowSegmentsError(doc session.ThreadID, err error) {
	s.SegmentDoc = doc
	s.Segments = nil
	s.SegmentsErr = err
	s.Tree.bump()
}

// =============================================================================
// MESSAGE AREA
// =============================================================================

func (s *Screen) placeholder(text string) {
	s.Tree.Messages.Clear()
	n := s.Tree.NewNode(KindPlaceholder)
	n.Body = text
	s.Tree.Messages.Append(n)
}

func (s *Screen) ShowHistoryLoading() { s.placeholder("Loading messages…") }

func (s *Screen) ShowNoThread() {
	s.placeholder("No thread selected. Ask a question to start one, or pick a thread.")
}

func (s *Screen) ShowHistoryError(err error) {
	s.placeholder("Error: " + util.StripControl(err.Error()))
}

func (s *Screen) ShowHistory(messages []backend.Message) {
	if len(messages) == 0 {
		s.placeholder("No messages in this thread yet.")
		return
	}
	s.Tree.Messages.Clear()
	for _, m := range messages {
		kind := KindUser
		body := util.StripControl(m.Content)
		if m.Role != "user" {
			kind = KindAssistant
			body = s.opts.Render(m.Content)
		}
		n := s.Tree.NewNode(kind)
		n.Status = m.Role + " · " + s.formatStamp(m.CreatedAt)
		n.Body = body
		s.Tree.Messages.Append(n)
	}
}

func (s *Screen) formatStamp(raw string) string {
	t, err := util.ParseTimestamp(raw, s.opts.TimezoneOffset)
	if err != nil || t.IsZero() {
		return raw
	}
	return util.FormatTimestamp(t, s.opts.TimezoneOffset)
}

func (s *Screen) AppendUserMessage(text string) {
	s.Tree.Messages.RemoveKind(KindPlaceholder)
	n := s.Tree.NewNode(KindUser)
	n.Status = "user · " + util.FormatTimestamp(s.opts.Now(), s.opts.TimezoneOffset)
	n.Body = util.StripControl(text)
	s.Tree.Messages.Append(n)
}

func (s *Screen) NewAnswer() session.AnswerView {
	return s.Tree.NewNode(KindAssistant)
}

func (s *Screen) Mount(v session.AnswerView) {
	if n, ok := v.(*Node); ok {
		s.Tree.Messages.Append(n)
	}
}

func (s *Screen) Park(v session.AnswerView) {
	if n, ok := v.(*Node); ok {
		s.Tree.Background.Append(n)
	}
}

// Release forgets a finished answer that is parked. One on screen stays
// until the next history load replaces it.
func (s *Screen) Release(v session.AnswerView) {
	if n, ok := v.(*Node); ok {
		s.Tree.Background.Remove(n)
	}
}
