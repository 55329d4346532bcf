// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/export"
	"github.com/jeranaias/cola-tui/internal/render"
	"github.com/jeranaias/cola-tui/internal/session"
	"github.com/jeranaias/cola-tui/internal/ui/styles"
	"github.com/jeranaias/cola-tui/internal/uploads"
	"github.com/jeranaias/cola-tui/internal/util"
	"github.com/jeranaias/cola-tui/internal/view"
)

// =============================================================================
// MESSAGES
// =============================================================================

// FileDroppedMsg reports a settled file in the watched upload folder.
type FileDroppedMsg struct {
	Path string
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options wires the model to its collaborators.
type Options struct {
	Session session.Config
	Backend session.Backend
	// Export is where transcripts are fetched from. Export is disabled when nil.
	Export       export.Source
	ExportFormat string
	ExportDir    string
	// Uploader is used for prompted and watched uploads. Uploads are
	// disabled when nil.
	Uploader     *uploads.Uploader
	Theme        string
	WordWrap     int
	ShowSegments bool
	// Plain skips markdown styling of answers.
	Plain  bool
	Logger zerolog.Logger
}

type focusArea int

const (
	focusInput focusArea = iota
	focusThreads
	focusDocuments
	focusCount
)

// confirmation is a pending y/n question.
type confirmation struct {
	text   string
	action func()
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model. It is always used through a pointer.
type Model struct {
	opts   Options
	theme  *styles.Theme
	keys   KeyMap
	d      *teaDispatcher
	term   *render.Terminal
	sess   *session.Session
	screen *view.Screen
	log    zerolog.Logger

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	prompt   textinput.Model

	focus        focusArea
	threadCursor int
	docCursor    int
	confirm      *confirmation
	prompting    bool
	spinning     bool

	width, height int
	renderedRev   uint64
	renderedWidth int

	ctx    context.Context
	cancel context.CancelFunc
}

var _ tea.Model = (*Model)(nil)

// New builds the model. The session starts in Init.
func New(opts Options) *Model {
	if opts.ExportFormat == "" {
		opts.ExportFormat = "md"
	}
	if opts.WordWrap <= 0 {
		opts.WordWrap = 100
	}

	m := &Model{
		opts:  opts,
		theme: styles.NewTheme(opts.Theme),
		keys:  DefaultKeyMap(),
		d:     &teaDispatcher{},
		term:  render.NewTerminal(opts.Theme, opts.WordWrap),
		log:   opts.Logger,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.input = textarea.New()
	m.input.Placeholder = "Ask a question…"
	m.input.ShowLineNumbers = false
	m.input.Prompt = "┃ "
	m.input.CharLimit = 0
	m.input.SetHeight(3)
	m.input.KeyMap.InsertNewline = m.keys.Newline
	m.input.Focus()

	m.viewport = viewport.New(0, 0)
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(m.theme.Spinner))

	m.prompt = textinput.New()
	m.prompt.Prompt = "Upload file: "
	m.prompt.Placeholder = "path/to/document.pdf"

	cfg := opts.Session
	cfg.Render = m.term.Render
	if opts.Plain {
		cfg.Render = render.Plain
	}
	m.screen = view.NewScreen(&m.input, view.Options{
		Render:         cfg.Render,
		TimezoneOffset: cfg.TimezoneOffset,
		Now:            cfg.Now,
	})
	m.sess = session.New(cfg, opts.Backend, m.screen, m.d, opts.Logger)
	return m
}

// Session exposes the session for the command layer.
func (m *Model) Session() *session.Session { return m.sess }

// Screen exposes the presentation state.
func (m *Model) Screen() *view.Screen { return m.screen }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.sess.Start()
	return tea.Batch(textarea.Blink, m.d.drain())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case runMsg:
		if msg.fn != nil {
			msg.fn()
		}

	case FileDroppedMsg:
		m.screen.Notify(session.NoticeInfo, "New file in watch folder: "+filepath.Base(msg.Path))
		m.upload(msg.Path)

	case spinner.TickMsg:
		if !m.sess.Controller.Busy() {
			m.spinning = false
			break
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if cmd, quit := m.handleKey(msg); quit {
			return m, cmd
		} else if cmd != nil {
			cmds = append(cmds, cmd)
		}

	default:
		if m.focus == focusInput && m.screen.InputEnabled {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.sess.Controller.Busy() && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	m.syncInputFocus()
	m.clampCursors()
	m.refreshViewport()

	cmds = append(cmds, m.d.drain())
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEYS
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if key.Matches(msg, m.keys.Quit) {
		m.sess.Close()
		m.cancel()
		return tea.Quit, true
	}

	if m.confirm != nil {
		c := m.confirm
		m.confirm = nil
		if key.Matches(msg, m.keys.Confirm) {
			c.action()
		} else {
			m.screen.Notify(session.NoticeInfo, "Cancelled.")
		}
		return nil, false
	}

	if m.prompting {
		return m.handlePromptKey(msg), false
	}

	switch {
	case key.Matches(msg, m.keys.Focus):
		m.cycleFocus(1)
		return nil, false
	case key.Matches(msg, m.keys.FocusBack):
		m.cycleFocus(-1)
		return nil, false
	case key.Matches(msg, m.keys.Abandon):
		if m.sess.Controller.AbandonAll() == 0 {
			m.screen.Notify(session.NoticeInfo, "Nothing is being generated.")
		}
		return nil, false
	case key.Matches(msg, m.keys.Refresh):
		m.sess.Router.ReloadThreads()
		m.sess.Router.ReloadDocuments()
		m.sess.Router.ReloadHistory()
		return nil, false
	case key.Matches(msg, m.keys.Export):
		m.exportSelected()
		return nil, false
	case key.Matches(msg, m.keys.Upload):
		return m.startPrompt(), false
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return nil, false
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return nil, false
	}

	switch m.focus {
	case focusThreads:
		m.handleThreadKey(msg)
	case focusDocuments:
		m.handleDocumentKey(msg)
	default:
		return m.handleInputKey(msg), false
	}
	return nil, false
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Enter) {
		if err := m.sess.Controller.Submit(); err != nil {
			m.log.Debug().Err(err).Msg("submission rejected")
		}
		return nil
	}
	if !m.screen.InputEnabled {
		return nil
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if text := m.input.Value(); text != before {
		m.sess.State.Drafts.Save(m.sess.State.Selected, text)
	}
	return cmd
}

func (m *Model) handleThreadKey(msg tea.KeyMsg) {
	threads := m.screen.Threads
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.threadCursor > 0 {
			m.threadCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.threadCursor < len(threads)-1 {
			m.threadCursor++
		}
	case key.Matches(msg, m.keys.Enter):
		if t, ok := m.cursorThread(); ok {
			m.sess.Router.SelectThread(t.ID, t.Title)
			m.focus = focusInput
		}
	case key.Matches(msg, m.keys.New):
		m.sess.NewThread()
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.cursorThread(); ok {
			m.confirm = &confirmation{
				text:   fmt.Sprintf("Delete thread %q and its documents? (y/n)", m.threadLabel(t)),
				action: func() { m.sess.DeleteThread(t.ID) },
			}
		}
	}
}

func (m *Model) handleDocumentKey(msg tea.KeyMsg) {
	docs := m.screen.Documents
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.docCursor > 0 {
			m.docCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.docCursor < len(docs)-1 {
			m.docCursor++
		}
	case key.Matches(msg, m.keys.Enter):
		if d, ok := m.cursorDocument(); ok {
			m.sess.Router.SelectDocument(d.ID)
		}
	case key.Matches(msg, m.keys.Delete):
		if d, ok := m.cursorDocument(); ok {
			m.confirm = &confirmation{
				text:   fmt.Sprintf("Delete document %q? (y/n)", d.Filename),
				action: func() { m.sess.DeleteDocument(d.ID) },
			}
		}
	}
}

func (m *Model) startPrompt() tea.Cmd {
	if m.opts.Uploader == nil {
		m.screen.Notify(session.NoticeWarn, "Uploads are not configured.")
		return nil
	}
	m.prompting = true
	m.prompt.SetValue("")
	return m.prompt.Focus()
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompting = false
		m.prompt.Blur()
		return nil
	case tea.KeyEnter:
		m.prompting = false
		m.prompt.Blur()
		if path := strings.TrimSpace(m.prompt.Value()); path != "" {
			m.upload(util.ExpandHome(path))
		}
		return nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return cmd
}

func (m *Model) cycleFocus(step int) {
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		m.focus = focusInput
		return
	}
	m.focus = (m.focus + focusArea(step) + focusCount) % focusCount
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m *Model) upload(path string) {
	if m.opts.Uploader == nil {
		return
	}
	m.sess.UploadFile(m.opts.Uploader, path)
}

func (m *Model) exportSelected() {
	id := m.sess.State.Selected
	if id.IsZero() {
		m.screen.Notify(session.NoticeWarn, "Select a thread to export.")
		return
	}
	if m.opts.Export == nil {
		m.screen.Notify(session.NoticeWarn, "Export is not available.")
		return
	}

	opts := export.DefaultOptions()
	opts.TimezoneOffset = m.opts.Session.TimezoneOffset
	if m.opts.ExportDir != "" {
		opts.OutputDir = m.opts.ExportDir
	}
	exporter, err := export.ForFormat(m.opts.ExportFormat, opts)
	if err != nil {
		m.screen.Notify(session.NoticeError, err.Error())
		return
	}

	src := m.opts.Export
	m.d.Go(func() func() {
		var path string
		t, err := export.Fetch(m.ctx, src, id)
		if err == nil {
			path, err = export.ToFile(t, exporter, opts)
		}
		return func() {
			if err != nil {
				m.screen.Notify(session.NoticeError, "Export failed: "+err.Error())
				return
			}
			m.screen.Notify(session.NoticeInfo, "Exported to "+path)
		}
	})
}

// =============================================================================
// STATE SYNC
// =============================================================================

func (m *Model) cursorThread() (backend.Thread, bool) {
	if m.threadCursor < 0 || m.threadCursor >= len(m.screen.Threads) {
		return backend.Thread{}, false
	}
	return m.screen.Threads[m.threadCursor], true
}

func (m *Model) cursorDocument() (backend.Document, bool) {
	if m.docCursor < 0 || m.docCursor >= len(m.screen.Documents) {
		return backend.Document{}, false
	}
	return m.screen.Documents[m.docCursor], true
}

func (m *Model) threadLabel(t backend.Thread) string {
	if t.Title != "" {
		return t.Title
	}
	if cached := m.sess.State.TitleOf(t.ID); cached != "" {
		return cached
	}
	return m.opts.Session.PlaceholderPrefix + t.ID.String()
}

func (m *Model) clampCursors() {
	if n := len(m.screen.Threads); m.threadCursor >= n {
		m.threadCursor = n - 1
	}
	if m.threadCursor < 0 {
		m.threadCursor = 0
	}
	if n := len(m.screen.Documents); m.docCursor >= n {
		m.docCursor = n - 1
	}
	if m.docCursor < 0 {
		m.docCursor = 0
	}
}

func (m *Model) syncInputFocus() {
	if m.focus == focusInput && m.screen.InputEnabled && !m.prompting && m.confirm == nil {
		if !m.input.Focused() {
			m.input.Focus()
		}
		return
	}
	if m.input.Focused() {
		m.input.Blur()
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		m.focus = focusInput
	}

	mainWidth := width - m.theme.SidebarWidth()
	m.input.SetWidth(mainWidth - 2)
	m.prompt.Width = mainWidth - len(m.prompt.Prompt) - 2

	// title + input block (3 lines + border) + status bar
	vh := height - 1 - (m.input.Height() + 2) - 1
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = mainWidth
	m.viewport.Height = vh

	wrap := mainWidth - 4
	if wrap > m.opts.WordWrap {
		wrap = m.opts.WordWrap
	}
	m.term.SetWidth(wrap)
}

// refreshViewport re-renders the message area when the tree changed,
// following the bottom if the reader was already there.
func (m *Model) refreshViewport() {
	rev := m.screen.Tree.Revision()
	if rev == m.renderedRev && m.viewport.Width == m.renderedWidth {
		return
	}
	atBottom := m.viewport.AtBottom() || m.renderedRev == 0
	m.viewport.SetContent(m.renderMessages(m.viewport.Width))
	if atBottom {
		m.viewport.GotoBottom()
	}
	m.renderedRev = rev
	m.renderedWidth = m.viewport.Width
}
