// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/util"
)

// Phase is where a submission stands.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingThread
	PhaseStreaming
	PhaseFinalizing
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingThread:
		return "awaiting-thread"
	case PhaseStreaming:
		return "streaming"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Controller runs question/answer exchanges.
type Controller struct {
	st     *State
	cfg    Config
	be     Backend
	view   Presenter
	d      Dispatcher
	router *Router
	ctx    context.Context
	log    zerolog.Logger

	phase    Phase
	awaiting bool
}

// Phase returns the phase of the latest submission.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Busy reports whether a new submission would be rejected for concurrency.
func (c *Controller) Busy() bool {
	return c.awaiting || c.st.Streams.IsAnyActive()
}

// NormalizeQuestion trims and NFC-normalizes input text.
func NormalizeQuestion(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// Submit asks the text currently in the input field.
func (c *Controller) Submit() error {
	return c.Ask(c.view.InputText())
}

// Ask starts an exchange for question on the selected thread, creating a
// thread first when none is selected. Rejections leave every piece of state
// and the view untouched apart from a notice.
func (c *Controller) Ask(question string) error {
	q := NormalizeQuestion(question)
	if q == "" {
		c.view.Notify(NoticeWarn, "Type a question first.")
		return ErrEmptyQuestion
	}
	if c.st.Streams.IsAnyActive() {
		c.view.Notify(NoticeWarn, "An answer is still being generated; wait for it to finish.")
		return ErrGenerationActive
	}
	if c.awaiting {
		c.view.Notify(NoticeWarn, "Still creating a thread for the previous question.")
		return ErrAwaitingThread
	}

	if !c.st.Selected.IsZero() {
		return c.begin(c.st.Selected, q)
	}

	c.phase = PhaseAwaitingThread
	c.awaiting = true
	c.view.SetInputEnabled(false)
	c.d.Go(func() func() {
		id, err := c.be.CreateThread(c.ctx, "")
		return func() { c.threadCreated(q, id, err) }
	})
	return nil
}

func (c *Controller) threadCreated(q string, id ThreadID, err error) {
	c.awaiting = false
	if err != nil {
		c.phase = PhaseFailed
		c.log.Error().Err(err).Msg("create thread failed")
		c.view.SetInputEnabled(!c.Busy())
		c.view.Notify(NoticeError, "Could not create a thread: "+err.Error())
		return
	}

	title := c.cfg.PlaceholderPrefix + id.String()
	if c.st.Selected.IsZero() {
		c.router.adopt(id, title)
	} else {
		// The user moved on while the thread was created. The question
		// still belongs to the new thread; its answer grows in the background.
		c.st.Drafts.Migrate("", id)
		c.st.rememberTitle(id, title)
	}
	c.log.Info().Str("thread", id.String()).Msg("thread created")
	c.router.ReloadThreads()

	if err := c.begin(id, q); err != nil {
		c.view.SetInputEnabled(!c.Busy())
	}
}

// begin registers the generation, builds its nodes and opens the stream.
func (c *Controller) begin(id ThreadID, q string) error {
	rec, err := c.st.Streams.TryBegin(id)
	if err != nil {
		c.view.Notify(NoticeWarn, "An answer is still being generated; wait for it to finish.")
		return err
	}
	rec.Question = q
	rec.StartedAt = c.cfg.now()

	visible := id == c.st.Selected
	if visible {
		c.view.AppendUserMessage(q)
	}
	rec.View = c.view.NewAnswer()
	rec.View.SetStatus("assistant · generating…")
	if visible {
		c.view.Mount(rec.View)
	} else {
		c.view.Park(rec.View)
	}
	c.view.SetInputEnabled(false)
	c.phase = PhaseStreaming

	ctx, cancel := context.WithCancel(c.ctx)
	rec.cancel = cancel
	c.log.Info().Str("thread", id.String()).Int("question_len", len(q)).Msg("stream opening")

	c.d.Go(func() func() {
		stream, err := c.be.Ask(ctx, q, id)
		return func() { c.opened(rec, stream, err) }
	})
	return nil
}

func (c *Controller) opened(rec *Record, stream FrameStream, err error) {
	if !c.st.Streams.owns(rec) {
		if stream != nil {
			stream.Close()
		}
		return
	}
	if err != nil {
		c.fail(rec, err)
		return
	}
	rec.stream = stream
	c.pump(rec)
}

// pump reads exactly one frame off the loop and applies it on the loop.
func (c *Controller) pump(rec *Record) {
	stream := rec.stream
	c.d.Go(func() func() {
		frame, err := stream.Next()
		return func() { c.apply(rec, frame, err) }
	})
}

func (c *Controller) apply(rec *Record, frame backend.Frame, err error) {
	if !c.st.Streams.owns(rec) {
		return
	}
	if err != nil {
		c.fail(rec, err)
		return
	}

	switch frame.Kind {
	case backend.FrameContent:
		rec.Append(frame.Content)
		rec.View.SetBody(c.cfg.render(rec.Text()))
		c.pump(rec)
	case backend.FrameMeta:
		if frame.Meta.Title != "" {
			c.router.ApplyTitle(rec.Thread, frame.Meta.Title)
		}
		c.pump(rec)
	case backend.FrameMalformed:
		c.log.Warn().Str("thread", rec.Thread.String()).Str("payload", util.Truncate(frame.Raw, 200)).
			Msg("skipping malformed stream frame")
		c.pump(rec)
	case backend.FrameError:
		c.fail(rec, &backend.StreamError{Partial: rec.Text(), Err: errors.New(frame.Error)})
	case backend.FrameDone:
		c.finalize(rec)
	}
}

// release ends the record and re-enables input when nothing else blocks it.
func (c *Controller) release(rec *Record) {
	rec.close()
	c.st.Streams.End(rec.Thread)
	c.view.SetInputEnabled(!c.Busy())
}

func (c *Controller) finalize(rec *Record) {
	c.phase = PhaseFinalizing
	id := rec.Thread
	c.release(rec)

	c.st.Drafts.Clear(id)
	if id == c.st.Selected {
		c.view.SetInputText("")
	}
	c.router.ReloadThreads()
	rec.View.SetStatus("assistant · " + util.FormatTimestamp(c.cfg.now(), c.cfg.TimezoneOffset))
	c.view.Release(rec.View)

	c.d.After(c.cfg.HistoryReloadDelay, func() {
		if c.st.Selected == id {
			c.router.ReloadHistory()
		}
	})

	if c.cfg.GenerateTitles && c.needsTitle(id) {
		c.st.titleRequested[id] = true
		q := rec.Question
		c.d.Go(func() func() {
			title, err := c.be.GenerateTitle(c.ctx, q, id)
			return func() {
				if err != nil {
					c.log.Warn().Err(err).Str("thread", id.String()).Msg("title generation failed")
					return
				}
				c.router.ApplyTitle(id, title)
				c.router.ReloadThreads()
			}
		})
	}

	c.log.Info().Str("thread", id.String()).Int("chars", len(rec.Text())).
		Dur("elapsed", c.cfg.now().Sub(rec.StartedAt)).Msg("stream completed")
	c.phase = PhaseCompleted
}

// needsTitle holds while id still carries its placeholder and no title
// request has been made for it.
func (c *Controller) needsTitle(id ThreadID) bool {
	if c.st.titleRequested[id] {
		return false
	}
	return strings.HasPrefix(c.st.TitleOf(id), c.cfg.PlaceholderPrefix)
}

func (c *Controller) fail(rec *Record, err error) {
	c.phase = PhaseFailed
	c.release(rec)

	rec.View.SetBody("")
	rec.View.SetError(failureMessage(err))
	rec.View.SetStatus("assistant · failed")
	c.view.Release(rec.View)
	c.log.Warn().Err(err).Str("thread", rec.Thread.String()).Int("partial_chars", len(rec.Text())).
		Msg("stream failed")
}

func failureMessage(err error) string {
	var se *backend.StreamError
	switch {
	case errors.As(err, &se):
		return "Error: " + se.Err.Error()
	case errors.Is(err, backend.ErrStreamClosed):
		return "Connection lost before the answer finished. Please try again."
	case errors.Is(err, backend.ErrUnauthorized):
		return "Error: not logged in (check server.cookie)."
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return "Error: " + apiErr.Message
	}
	return "Connection error, please try again."
}

// Abandon closes the live stream of id, if any. The partial answer stays
// visible and is marked cancelled.
func (c *Controller) Abandon(id ThreadID) bool {
	rec := c.st.Streams.Get(id)
	if rec == nil {
		return false
	}
	c.release(rec)
	c.phase = PhaseFailed
	rec.View.SetError("Cancelled.")
	rec.View.SetStatus("assistant · cancelled")
	c.view.Release(rec.View)
	c.log.Info().Str("thread", id.String()).Msg("stream abandoned")
	return true
}

// AbandonAll closes every live stream.
func (c *Controller) AbandonAll() int {
	n := 0
	for _, rec := range c.st.Streams.Active() {
		if c.Abandon(rec.Thread) {
			n++
		}
	}
	return n
}
