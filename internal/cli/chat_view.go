// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/render"
	"github.com/jeranaias/cola-tui/internal/session"
	"github.com/jeranaias/cola-tui/internal/util"
	"github.com/jeranaias/cola-tui/internal/view"
)

// =============================================================================
// LINE PRESENTER
// =============================================================================

// lineScreen presents a session on a plain output stream. It keeps the
// screen state (lists, title, input) in an embedded view.Screen and prints
// what a line user needs to see: notices, answers as they stream, and a
// thread's history when it is opened explicitly.
type lineScreen struct {
	*view.Screen
	out    io.Writer
	offset int

	// showHistory prints the next history load; set by /open.
	showHistory bool
}

func newLineScreen(out io.Writer, offset int) *lineScreen {
	return &lineScreen{
		Screen: view.NewScreen(&view.LineInput{}, view.Options{
			Render:         render.Plain,
			TimezoneOffset: offset,
			Now:            time.Now,
		}),
		out:    out,
		offset: offset,
	}
}

func (s *lineScreen) Notify(level session.NoticeLevel, message string) {
	s.Screen.Notify(level, message)
	message = util.StripControl(message)
	switch level {
	case session.NoticeError:
		fmt.Fprintln(s.out, ErrorStyle.Render(message))
	case session.NoticeWarn:
		fmt.Fprintln(s.out, WarningStyle.Render(message))
	default:
		fmt.Fprintln(s.out, DimStyle.Render(message))
	}
}

func (s *lineScreen) ShowHistory(messages []backend.Message) {
	s.Screen.ShowHistory(messages)
	if !s.showHistory {
		return
	}
	s.showHistory = false
	if len(messages) == 0 {
		fmt.Fprintln(s.out, DimStyle.Render("No messages in this thread yet."))
		return
	}
	for _, m := range messages {
		fmt.Fprintf(s.out, "%s %s\n", PromptStyle.Render(m.Role+":"), DimStyle.Render(stampOrDash(m.CreatedAt, s.offset)))
		fmt.Fprintln(s.out, util.StripControl(m.Content))
	}
}

func (s *lineScreen) ShowHistoryError(err error) {
	s.Screen.ShowHistoryError(err)
	if s.showHistory {
		s.showHistory = false
		fmt.Fprintln(s.out, ErrorStyle.Render("Could not load messages: "+util.StripControl(err.Error())))
	}
}

// NewAnswer returns a view that prints the answer as it grows.
func (s *lineScreen) NewAnswer() session.AnswerView {
	return &lineAnswer{out: s.out}
}

// AppendUserMessage is a no-op: the user's line is already on screen.
func (s *lineScreen) AppendUserMessage(string) {}

// lineAnswer prints the newly appended suffix of each re-rendered body.
// Printed text cannot be taken back, so clearing the body only resets the
// suffix tracking.
type lineAnswer struct {
	out     io.Writer
	printed string
	started bool
	ended   bool
}

func (a *lineAnswer) SetStatus(status string) {
	switch {
	case strings.HasSuffix(status, "generating…"):
		if !a.started {
			a.started = true
			fmt.Fprint(a.out, PromptStyle.Render("assistant:")+" ")
		}
	default:
		a.end()
	}
}

func (a *lineAnswer) SetBody(rendered string) {
	if rendered == "" {
		a.printed = ""
		return
	}
	if strings.HasPrefix(rendered, a.printed) {
		fmt.Fprint(a.out, rendered[len(a.printed):])
	} else {
		fmt.Fprint(a.out, "\n"+rendered)
	}
	a.printed = rendered
}

func (a *lineAnswer) SetError(message string) {
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, ErrorStyle.Render(util.StripControl(message)))
	a.ended = true
}

func (a *lineAnswer) end() {
	if a.ended {
		return
	}
	a.ended = true
	fmt.Fprintln(a.out)
}
