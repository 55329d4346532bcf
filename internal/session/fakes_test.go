// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cola-tui/internal/backend"
)

// =============================================================================
// FAKE STREAM
// =============================================================================

var errFakeClosed = errors.New("fake stream closed")

type chanStream struct {
	frames    chan backend.Frame
	errs      chan error
	closed    chan struct{}
	closeOnce sync.Once
}

func newChanStream() *chanStream {
	return &chanStream{
		frames: make(chan backend.Frame, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (s *chanStream) Next() (backend.Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.errs:
		return backend.Frame{}, err
	case <-s.closed:
		return backend.Frame{}, errFakeClosed
	}
}

func (s *chanStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *chanStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *chanStream) content(text string) { s.frames <- backend.Frame{Kind: backend.FrameContent, Content: text} }
func (s *chanStream) done()               { s.frames <- backend.Frame{Kind: backend.FrameDone} }

// =============================================================================
// FAKE BACKEND
// =============================================================================

type fakeBackend struct {
	mu sync.Mutex

	nextID      int
	threads     []backend.Thread
	messages    map[ThreadID][]backend.Message
	createGate  chan struct{}
	historyGate map[ThreadID]chan struct{}
	askErr      error
	titleErr    error
	title       string

	streams     []*chanStream
	asked       []string
	titleCalls  int
	listCalls   int
	deleted     []ThreadID
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID:      100,
		messages:    make(map[ThreadID][]backend.Message),
		historyGate: make(map[ThreadID]chan struct{}),
		title:       "Widgets",
	}
}

func (b *fakeBackend) ListThreads(ctx context.Context) ([]backend.Thread, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	return append([]backend.Thread(nil), b.threads...), nil
}

func (b *fakeBackend) CreateThread(ctx context.Context, title string) (ThreadID, error) {
	b.mu.Lock()
	gate := b.createGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := ThreadID(fmt.Sprint(b.nextID))
	b.threads = append(b.threads, backend.Thread{ID: id, Title: title})
	return id, nil
}

func (b *fakeBackend) DeleteThread(ctx context.Context, id ThreadID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, id)
	return nil
}

func (b *fakeBackend) ListMessages(ctx context.Context, id ThreadID) ([]backend.Message, error) {
	b.mu.Lock()
	gate := b.historyGate[id]
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.Message(nil), b.messages[id]...), nil
}

func (b *fakeBackend) ListDocuments(ctx context.Context, thread ThreadID) ([]backend.Document, error) {
	return nil, nil
}

func (b *fakeBackend) ListSegments(ctx context.Context, doc ThreadID) ([]backend.Segment, error) {
	return []backend.Segment{{Index: 0, Preview: "seg of " + doc.String()}}, nil
}

func (b *fakeBackend) DeleteDocument(ctx context.Context, doc, thread ThreadID) error {
	return nil
}

func (b *fakeBackend) GenerateTitle(ctx context.Context, question string, thread ThreadID) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.titleCalls++
	if b.titleErr != nil {
		return "", b.titleErr
	}
	return b.title, nil
}

func (b *fakeBackend) Ask(ctx context.Context, question string, thread ThreadID) (FrameStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.askErr != nil {
		return nil, b.askErr
	}
	s := newChanStream()
	b.streams = append(b.streams, s)
	b.asked = append(b.asked, thread.String()+":"+question)
	return s, nil
}

func (b *fakeBackend) stream(i int) *chanStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streams[i]
}

func (b *fakeBackend) streamCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams)
}

func (b *fakeBackend) titleCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.titleCalls
}

// =============================================================================
// FAKE UPLOADER
// =============================================================================

type fakeUploader struct {
	reply  *backend.UploadResult
	err    error
	paths  []string
	thread []ThreadID
}

func (u *fakeUploader) UploadFile(ctx context.Context, path string, thread ThreadID) (*backend.UploadResult, error) {
	u.paths = append(u.paths, path)
	u.thread = append(u.thread, thread)
	if u.err != nil {
		return nil, u.err
	}
	if u.reply != nil {
		return u.reply, nil
	}
	return &backend.UploadResult{Success: true}, nil
}

// =============================================================================
// FAKE PRESENTER
// =============================================================================

type fakeAnswer struct {
	status string
	body   string
	err    string
	parent string // "visible", "background", "released" or ""
}

func (a *fakeAnswer) SetStatus(s string) { a.status = s }
func (a *fakeAnswer) SetBody(s string)   { a.body = s }
func (a *fakeAnswer) SetError(s string)  { a.err = s }

// item is one entry of the visible message area.
type item struct {
	text   string
	answer *fakeAnswer
}

type fakePresenter struct {
	input        string
	inputEnabled bool
	title        string
	notices      []string

	visible    []item
	background map[*fakeAnswer]bool
	answers    []*fakeAnswer

	threads       []backend.Thread
	historyShows  int
	lastHistory   []backend.Message
	noThreadShown bool
	segmentsReset int
	segments      []backend.Segment
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{inputEnabled: true, background: make(map[*fakeAnswer]bool)}
}

func (p *fakePresenter) InputText() string          { return p.input }
func (p *fakePresenter) SetInputText(s string)      { p.input = s }
func (p *fakePresenter) SetInputEnabled(e bool)     { p.inputEnabled = e }
func (p *fakePresenter) SetThreadTitle(t string)    { p.title = t }
func (p *fakePresenter) Notify(_ NoticeLevel, m string) { p.notices = append(p.notices, m) }

func (p *fakePresenter) ShowThreads(t []backend.Thread, _ ThreadID) { p.threads = t }
func (p *fakePresenter) ShowThreadsError(error)                     {}
func (p *fakePresenter) ShowDocuments([]backend.Document)           {}
func (p *fakePresenter) ShowDocumentsError(error)                   {}
func (p *fakePresenter) ResetSegmentPreview()                       { p.segmentsReset++ }
func (p *fakePresenter) ShowSegments(_ ThreadID, s []backend.Segment) {
	p.segments = s
}
func (p *fakePresenter) ShowSegmentsError(ThreadID, error) {}

// replace drops the visible area. Any answer still in it is destroyed,
// which the router must never let happen to a live one.
func (p *fakePresenter) replace(items ...item) {
	for _, it := range p.visible {
		if it.answer != nil {
			it.answer.parent = ""
		}
	}
	p.visible = items
}

func (p *fakePresenter) ShowHistoryLoading() { p.replace(item{text: "loading"}) }
func (p *fakePresenter) ShowHistory(msgs []backend.Message) {
	p.historyShows++
	p.lastHistory = msgs
	items := make([]item, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, item{text: m.Role + ":" + m.Content})
	}
	p.replace(items...)
}
func (p *fakePresenter) ShowHistoryError(err error) { p.replace(item{text: "error: " + err.Error()}) }
func (p *fakePresenter) ShowNoThread() {
	p.noThreadShown = true
	p.replace(item{text: "no thread"})
}

func (p *fakePresenter) AppendUserMessage(text string) {
	p.visible = append(p.visible, item{text: "user:" + text})
}

func (p *fakePresenter) NewAnswer() AnswerView {
	a := &fakeAnswer{}
	p.answers = append(p.answers, a)
	return a
}

func (p *fakePresenter) detach(a *fakeAnswer) {
	delete(p.background, a)
	for i, it := range p.visible {
		if it.answer == a {
			p.visible = append(p.visible[:i], p.visible[i+1:]...)
			break
		}
	}
	a.parent = ""
}

func (p *fakePresenter) Mount(v AnswerView) {
	a := v.(*fakeAnswer)
	p.detach(a)
	p.visible = append(p.visible, item{answer: a})
	a.parent = "visible"
}

func (p *fakePresenter) Park(v AnswerView) {
	a := v.(*fakeAnswer)
	p.detach(a)
	p.background[a] = true
	a.parent = "background"
}

func (p *fakePresenter) Release(v AnswerView) {
	a := v.(*fakeAnswer)
	if a.parent == "background" {
		p.detach(a)
		a.parent = "released"
	}
}

func (p *fakePresenter) visibleAnswers(a *fakeAnswer) int {
	n := 0
	for _, it := range p.visible {
		if it.answer == a {
			n++
		}
	}
	return n
}

func (p *fakePresenter) visibleTexts() []string {
	var out []string
	for _, it := range p.visible {
		if it.answer == nil {
			out = append(out, it.text)
		}
	}
	return out
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	t    *testing.T
	be   *fakeBackend
	view *fakePresenter
	loop *Loop
	s    *Session
	ctx  context.Context
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.HistoryReloadDelay = time.Millisecond
	cfg.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	for _, m := range mutate {
		m(&cfg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	h := &harness{
		t:    t,
		be:   newFakeBackend(),
		view: newFakePresenter(),
		loop: NewLoop(),
		ctx:  ctx,
	}
	h.s = New(cfg, h.be, h.view, h.loop, zerolog.Nop())
	t.Cleanup(h.s.Close)
	return h
}

func (h *harness) until(cond func() bool) {
	h.t.Helper()
	require.NoError(h.t, h.loop.RunUntil(h.ctx, cond), "condition not reached")
}

func (h *harness) settle() {
	h.t.Helper()
	require.NoError(h.t, h.loop.RunUntilIdle(h.ctx), "loop did not go idle")
}

// selectAndSettle selects id and waits for its history to be drawn.
func (h *harness) selectAndSettle(id ThreadID, title string) {
	h.t.Helper()
	shows := h.view.historyShows
	h.s.Router.SelectThread(id, title)
	h.until(func() bool { return h.view.historyShows > shows })
}

// startStream submits question on the selected thread and waits until the
// stream is open.
func (h *harness) startStream(question string) (*chanStream, *fakeAnswer) {
	h.t.Helper()
	before := h.be.streamCount()
	h.view.SetInputText(question)
	require.NoError(h.t, h.s.Controller.Submit())
	h.until(func() bool {
		rec := h.s.State.Streams.Active()
		return h.be.streamCount() > before && len(rec) == 1 && rec[0].stream != nil
	})
	return h.be.stream(before), h.view.answers[len(h.view.answers)-1]
}
