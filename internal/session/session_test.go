// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/uploads"
)

// =============================================================================
// DRAFT STORE
// =============================================================================

func TestDraftKey(t *testing.T) {
	require.Equal(t, "__new__", DraftKey(""))
	require.Equal(t, "t_12", DraftKey("12"))
	require.NotEqual(t, DraftKey("1"), DraftKey("11"))
	require.NotEqual(t, DraftKey("__new__"), DraftKey(""))
}

func TestDraftStore(t *testing.T) {
	s := NewDraftStore()
	require.Equal(t, "", s.Load("1"))

	s.Save("1", "first")
	s.Save("1", "second")
	require.Equal(t, "second", s.Load("1"))

	s.Save("", "unsent")
	s.Migrate("", "2")
	require.Equal(t, "unsent", s.Load("2"))
	require.Equal(t, "", s.Load(""))

	s.Migrate("", "3")
	require.Equal(t, "", s.Load("3"))

	s.Clear("1")
	s.Clear("1")
	require.Equal(t, "", s.Load("1"))
	require.Equal(t, 1, s.Len())
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRegistry_SingleFlightAcrossThreads(t *testing.T) {
	g := NewRegistry()
	require.False(t, g.IsAnyActive())

	rec, err := g.TryBegin("1")
	require.NoError(t, err)
	require.Same(t, rec, g.Get("1"))

	_, err = g.TryBegin("2")
	require.ErrorIs(t, err, ErrGenerationActive)
	_, err = g.TryBegin("1")
	require.ErrorIs(t, err, ErrGenerationActive)
	require.Equal(t, 1, g.Len())
	require.Nil(t, g.Get("2"))

	g.End("1")
	g.End("1")
	require.False(t, g.IsAnyActive())

	_, err = g.TryBegin("2")
	require.NoError(t, err)
}

func TestRecord_AppendOnly(t *testing.T) {
	rec := &Record{Thread: "1"}
	rec.Append("a")
	rec.Append("")
	rec.Append("bc")
	require.Equal(t, "abc", rec.Text())
	require.Equal(t, 3, rec.Frames())
}

// =============================================================================
// LOOP
// =============================================================================

func TestLoop_RunsContinuationsInOrderOnCaller(t *testing.T) {
	loop := NewLoop()
	var got []string
	loop.Go(func() func() {
		return func() { got = append(got, "go") }
	})
	loop.After(5*time.Millisecond, func() { got = append(got, "after") })
	loop.Go(func() func() { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, loop.RunUntilIdle(ctx))
	require.Equal(t, []string{"go", "after"}, got)
	require.Equal(t, 0, loop.Pending())
}

func TestLoop_RunUntilHonoursContext(t *testing.T) {
	loop := NewLoop()
	loop.Go(func() func() {
		time.Sleep(time.Second)
		return nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, loop.RunUntilIdle(ctx), context.DeadlineExceeded)
}

// =============================================================================
// CONTROLLER: EXAMPLES
// =============================================================================

func TestSubmitWithNoThread_CreatesThreadAndStreams(t *testing.T) {
	h := newHarness(t)
	h.s.Start()
	h.settle()
	require.True(t, h.view.noThreadShown)

	h.view.SetInputText("What is X?")
	require.NoError(t, h.s.Controller.Submit())
	require.Equal(t, PhaseAwaitingThread, h.s.Controller.Phase())
	require.False(t, h.view.inputEnabled)

	h.until(func() bool { return h.be.streamCount() == 1 && h.s.State.Streams.Len() == 1 })
	require.Equal(t, ThreadID("101"), h.s.State.Selected)
	require.Equal(t, "对话#101", h.view.title)
	require.Equal(t, []string{"user:What is X?"}, h.view.visibleTexts())
	answer := h.view.answers[0]
	require.Equal(t, "visible", answer.parent)

	stream := h.be.stream(0)
	stream.content("X is")
	h.until(func() bool { return answer.body == "X is" })
	stream.content(" a widget.")
	stream.done()
	h.settle()

	require.Equal(t, "X is a widget.", answer.body)
	require.Empty(t, answer.err)
	require.Equal(t, "assistant · 2024-05-01 08:00:00", answer.status)
	require.True(t, h.view.inputEnabled)
	require.Equal(t, "", h.view.input)
	require.False(t, h.s.State.Streams.IsAnyActive())
	require.True(t, stream.isClosed())
	require.Equal(t, PhaseCompleted, h.s.Controller.Phase())

	require.Equal(t, 1, h.be.titleCallCount())
	require.Equal(t, "Widgets", h.view.title)
	require.Equal(t, "Widgets", h.s.State.Title)
	require.Equal(t, []string{"101:What is X?"}, h.be.asked)
}

func TestSubmitWhileActive_IsRejected(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "T")
	_, _ = h.startStream("first")

	visibleBefore := len(h.view.visible)
	answersBefore := len(h.view.answers)

	h.view.SetInputText("second")
	err := h.s.Controller.Submit()
	require.ErrorIs(t, err, ErrGenerationActive)
	require.Equal(t, 1, h.s.State.Streams.Len())
	require.Len(t, h.view.visible, visibleBefore)
	require.Len(t, h.view.answers, answersBefore)
	require.Equal(t, 1, h.be.streamCount())

	// Another thread does not get its own slot either.
	h.selectAndSettle("8", "U")
	h.view.SetInputText("third")
	require.ErrorIs(t, h.s.Controller.Submit(), ErrGenerationActive)
	require.Equal(t, 1, h.s.State.Streams.Len())
}

func TestSubmitEmpty_IsRejected(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "T")
	h.view.SetInputText("   \n\t")
	require.ErrorIs(t, h.s.Controller.Submit(), ErrEmptyQuestion)
	require.Empty(t, h.view.answers)
	require.Len(t, h.view.notices, 1)
}

func TestSubmitWhileCreatingThread_IsRejected(t *testing.T) {
	h := newHarness(t)
	h.be.createGate = make(chan struct{})
	h.s.Start()
	h.settle()

	h.view.SetInputText("one")
	require.NoError(t, h.s.Controller.Submit())
	require.ErrorIs(t, h.s.Controller.Ask("two"), ErrAwaitingThread)

	close(h.be.createGate)
	h.until(func() bool { return h.be.streamCount() == 1 })
	require.Equal(t, 1, h.s.State.Streams.Len())
}

// =============================================================================
// CONTROLLER: FRAMES
// =============================================================================

func TestRender_IsWholeBufferEveryTime(t *testing.T) {
	var rendered []string
	h := newHarness(t, func(c *Config) {
		c.Render = func(md string) string {
			rendered = append(rendered, md)
			return "<" + md + ">"
		}
	})
	h.selectAndSettle("7", "Known title")
	stream, answer := h.startStream("q")

	pieces := []string{"**bo", "ld** and `co", "de`"}
	for _, p := range pieces {
		stream.content(p)
	}
	stream.done()
	h.settle()

	require.Equal(t, []string{"**bo", "**bold** and `co", "**bold** and `code`"}, rendered)
	require.Equal(t, "<**bold** and `code`>", answer.body)
}

func TestDoneWithEmptyBuffer_ReleasesInput(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "Known title")
	stream, answer := h.startStream("q")
	require.False(t, h.view.inputEnabled)

	stream.done()
	h.settle()

	require.True(t, h.view.inputEnabled)
	require.False(t, h.s.State.Streams.IsAnyActive())
	require.Equal(t, "", answer.body)
	require.Contains(t, answer.status, "2024-05-01")
}

func TestMalformedFrame_IsSkipped(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "Known title")
	stream, answer := h.startStream("q")

	stream.content("a")
	stream.frames <- backend.Frame{Kind: backend.FrameMalformed, Raw: "{oops"}
	stream.content("b")
	stream.done()
	h.settle()

	require.Equal(t, "ab", answer.body)
	require.Empty(t, answer.err)
}

func TestErrorFrame_ReplacesBodyWithError(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "对话#7")
	stream, answer := h.startStream("q")

	stream.content("partial")
	stream.frames <- backend.Frame{Kind: backend.FrameError, Error: "model overloaded"}
	h.settle()

	require.Empty(t, answer.body)
	require.Equal(t, "Error: model overloaded", answer.err)
	require.Equal(t, "assistant · failed", answer.status)
	require.True(t, h.view.inputEnabled)
	require.False(t, h.s.State.Streams.IsAnyActive())
	require.Equal(t, PhaseFailed, h.s.Controller.Phase())
	require.True(t, stream.isClosed())
	require.Equal(t, 0, h.be.titleCallCount())
	require.Equal(t, 1, h.be.streamCount(), "no automatic retry")
}

func TestConnectionDrop_Fails(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "Known title")
	stream, answer := h.startStream("q")

	stream.errs <- backend.ErrStreamClosed
	h.settle()

	require.Contains(t, answer.err, "Connection lost")
	require.True(t, h.view.inputEnabled)
}

func TestAskRejectedByServer_Fails(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "Known title")
	h.be.askErr = &backend.APIError{Status: 404, Message: "未找到线程或无权限", Path: "/ask"}

	h.view.SetInputText("q")
	require.NoError(t, h.s.Controller.Submit())
	h.settle()

	require.Len(t, h.view.answers, 1)
	require.Equal(t, "Error: 未找到线程或无权限", h.view.answers[0].err)
	require.True(t, h.view.inputEnabled)
}

func TestMetaFrame_AppliesTitleAndSkipsGeneration(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "对话#7")
	stream, _ := h.startStream("q")

	stream.frames <- backend.Frame{Kind: backend.FrameMeta, Meta: backend.Meta{ThreadID: "7", Title: "Server title"}}
	stream.done()
	h.settle()

	require.Equal(t, "Server title", h.view.title)
	require.Equal(t, 0, h.be.titleCallCount())
}

func TestTitleGeneration_OnlyOncePerThread(t *testing.T) {
	h := newHarness(t)
	h.be.titleErr = errors.New("no title today")
	h.selectAndSettle("7", "对话#7")

	for i := 0; i < 2; i++ {
		stream, _ := h.startStream("q")
		stream.done()
		h.settle()
	}
	require.Equal(t, 1, h.be.titleCallCount())
	require.Equal(t, "对话#7", h.view.title)
}

func TestTitleGeneration_SkippedForRealTitles(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "Groceries")
	stream, _ := h.startStream("q")
	stream.done()
	h.settle()
	require.Equal(t, 0, h.be.titleCallCount())
}

// =============================================================================
// ROUTER
// =============================================================================

func TestDrafts_RestoredAcrossSwitches(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("A", "A")
	h.view.SetInputText("draft for A")

	h.selectAndSettle("B", "B")
	require.Equal(t, "", h.view.input)
	h.view.SetInputText("draft for B")

	h.selectAndSettle("A", "")
	require.Equal(t, "draft for A", h.view.input)
	require.Equal(t, "A", h.view.title, "cached title is reused")

	h.selectAndSettle("B", "B")
	require.Equal(t, "draft for B", h.view.input)
}

func TestSelect_ResetsSegmentPreview(t *testing.T) {
	h := newHarness(t)
	h.s.Router.SelectDocument("9")
	h.settle()
	require.Len(t, h.view.segments, 1)

	resets := h.view.segmentsReset
	h.selectAndSettle("A", "A")
	require.Equal(t, resets+1, h.view.segmentsReset)
}

func TestSwitchAway_StreamKeepsGrowingInBackground(t *testing.T) {
	h := newHarness(t)
	h.be.messages["1"] = []backend.Message{{Role: "user", Content: "old"}}
	h.selectAndSettle("1", "One")
	stream, answer := h.startStream("q")
	stream.content("X is")
	h.until(func() bool { return answer.body == "X is" })

	h.selectAndSettle("2", "Two")
	require.Equal(t, "background", answer.parent)
	require.Equal(t, 0, h.view.visibleAnswers(answer))
	require.False(t, stream.isClosed())

	stream.content(" a widget.")
	h.until(func() bool { return answer.body == "X is a widget." })
	require.Equal(t, "X is a widget.", h.s.State.Streams.Get("1").Text())

	h.selectAndSettle("1", "")
	require.Equal(t, "visible", answer.parent)
	require.Equal(t, 1, h.view.visibleAnswers(answer))
	require.False(t, h.view.background[answer])
	require.Equal(t, []string{"user:old"}, h.view.visibleTexts())
	require.Len(t, h.view.answers, 1, "relocation never creates nodes")

	stream.done()
	h.settle()
	require.Equal(t, "X is a widget.", answer.body)
}

func TestFinishInBackground_DoesNotTouchVisibleThread(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("1", "One")
	stream, answer := h.startStream("q")

	h.selectAndSettle("2", "Two")
	h.view.SetInputText("typing in two")
	shows := h.view.historyShows

	stream.content("done soon")
	stream.done()
	h.settle()

	require.Equal(t, "typing in two", h.view.input)
	require.Equal(t, ThreadID("2"), h.s.State.Selected)
	require.Equal(t, shows, h.view.historyShows, "no history reload for a thread that is not selected")
	require.Equal(t, "released", answer.parent)
	require.Empty(t, h.view.background)
	require.True(t, h.view.inputEnabled)
}

func TestStaleHistory_IsDropped(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.be.historyGate["slow"] = gate
	h.be.messages["slow"] = []backend.Message{{Role: "user", Content: "slow"}}
	h.be.messages["fast"] = []backend.Message{{Role: "user", Content: "fast"}}

	h.s.Router.SelectThread("slow", "Slow")
	h.selectAndSettle("fast", "Fast")
	require.Equal(t, []string{"user:fast"}, h.view.visibleTexts())

	close(gate)
	h.settle()
	require.Equal(t, []string{"user:fast"}, h.view.visibleTexts())
}

func TestThreadCreatedAfterUserMovedOn(t *testing.T) {
	h := newHarness(t)
	h.be.createGate = make(chan struct{})
	h.s.Start()
	h.settle()

	h.view.SetInputText("background question")
	require.NoError(t, h.s.Controller.Submit())

	h.selectAndSettle("5", "Five")
	close(h.be.createGate)
	h.until(func() bool { return h.be.streamCount() == 1 && h.s.State.Streams.Len() == 1 })

	require.Equal(t, ThreadID("5"), h.s.State.Selected)
	require.Empty(t, h.view.visibleTexts())
	answer := h.view.answers[0]
	require.Equal(t, "background", answer.parent)
	require.NotNil(t, h.s.State.Streams.Get("101"))
	require.Equal(t, "background question", h.s.State.Drafts.Load("101"))

	h.be.stream(0).done()
	h.settle()
	require.Equal(t, "", h.s.State.Drafts.Load("101"))
}

func TestAbandon_ClosesStreamAndReleases(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "Known title")
	stream, answer := h.startStream("q")
	stream.content("half")
	h.until(func() bool { return answer.body == "half" })

	require.True(t, h.s.Controller.Abandon("7"))
	require.False(t, h.s.Controller.Abandon("7"))
	h.settle()

	require.True(t, stream.isClosed())
	require.Equal(t, "half", answer.body)
	require.Equal(t, "Cancelled.", answer.err)
	require.True(t, h.view.inputEnabled)
	require.Equal(t, "visible", answer.parent, "an answer on screen is kept")
	require.False(t, h.s.State.Streams.IsAnyActive())
}

func TestDeleteSelectedThread_ResetsSelection(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "Seven")
	stream, _ := h.startStream("q")
	h.view.SetInputText("leftover")

	h.s.DeleteThread("7")
	h.settle()

	require.True(t, stream.isClosed())
	require.Equal(t, ThreadID(""), h.s.State.Selected)
	require.True(t, h.view.noThreadShown)
	require.Equal(t, []ThreadID{"7"}, h.be.deleted)
	require.Equal(t, "", h.s.State.Drafts.Load("7"))
	require.Equal(t, "", h.s.State.TitleOf("7"))
}

func TestUploadWithoutThread_SelectsServerThread(t *testing.T) {
	h := newHarness(t)
	h.s.Start()
	h.settle()
	u := &fakeUploader{reply: &backend.UploadResult{Success: true, ThreadID: "33", Message: "2 segments"}}

	h.s.UploadFile(u, "/tmp/in/notes.txt")
	h.settle()

	require.Equal(t, []ThreadID{""}, u.thread)
	require.Equal(t, ThreadID("33"), h.s.State.Selected)
	require.Contains(t, h.view.notices[len(h.view.notices)-1], "notes.txt: 2 segments")
}

func TestUploadFile_IntoSelectionAndSkips(t *testing.T) {
	h := newHarness(t)
	h.selectAndSettle("7", "Seven")

	u := &fakeUploader{err: fmt.Errorf("upload a.md: %w", uploads.ErrAlreadyUploaded)}
	h.s.UploadFile(u, "a.md")
	h.settle()
	require.Equal(t, []ThreadID{"7"}, u.thread)
	require.Equal(t, "Skipped a.md: already uploaded to this thread.", h.view.notices[len(h.view.notices)-1])

	u.err = errors.New("disk on fire")
	h.s.UploadFile(u, "b.md")
	h.settle()
	require.Contains(t, h.view.notices[len(h.view.notices)-1], "Upload of b.md failed")
	require.Equal(t, ThreadID("7"), h.s.State.Selected)
}

func TestNormalizeQuestion(t *testing.T) {
	require.Equal(t, "é", NormalizeQuestion("  é "))
	require.Equal(t, "", NormalizeQuestion("\n\t "))
}
