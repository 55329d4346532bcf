// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/config"
	"github.com/jeranaias/cola-tui/internal/export"
	"github.com/jeranaias/cola-tui/internal/session"
	"github.com/jeranaias/cola-tui/internal/uploads"
	"github.com/jeranaias/cola-tui/internal/util"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader is the REPL's source of lines.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// linerReader gives terminal users history and line editing. History is
// kept in the config directory.
type linerReader struct {
	line        *liner.State
	historyFile string
}

var slashCommands = []string{
	"/help", "/threads", "/open", "/new", "/delete", "/docs", "/segments",
	"/upload", "/export", "/quit",
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(in string) []string {
		if !strings.HasPrefix(in, "/") {
			return nil
		}
		var out []string
		for _, c := range slashCommands {
			if strings.HasPrefix(c, in) {
				out = append(out, c)
			}
		}
		return out
	})

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &linerReader{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *linerReader) Close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// scanReader reads piped input without prompting.
type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) ReadInput(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Close() {}

// =============================================================================
// CHAT COMMAND
// =============================================================================

func chatCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "interactive line-mode chat",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "thread", Aliases: []string{"t"}, Usage: "open this thread first"},
		},
		Action: func(c *cli.Context) error {
			var in lineReader
			if e.interactive() && e.in == os.Stdin {
				in = newLinerReader()
			} else {
				in = &scanReader{scanner: bufio.NewScanner(e.in)}
			}
			defer in.Close()

			r := newREPL(c.Context, e)
			defer r.close()
			return r.run(in, backend.ID(c.String("thread")))
		},
	}
}

// repl drives one session from typed lines. Every session call happens on
// the calling goroutine: after each line the loop is run until idle.
type repl struct {
	ctx      context.Context
	e        *env
	loop     *session.Loop
	screen   *lineScreen
	sess     *session.Session
	client   *backend.Client
	uploader *uploads.Uploader
	ledger   *uploads.Ledger
}

func newREPL(ctx context.Context, e *env) *repl {
	client := e.client()
	loop := session.NewLoop()
	screen := newLineScreen(e.out, e.cfg.UI.TimezoneOffset)
	r := &repl{
		ctx:    ctx,
		e:      e,
		loop:   loop,
		screen: screen,
		sess:   session.New(e.sessionConfig(nil), session.FromClient(client), screen, loop, e.log),
		client: client,
	}
	r.uploader, r.ledger = newUploader(e, client, e.log)
	return r
}

func (r *repl) close() {
	r.sess.Close()
	if r.ledger != nil {
		r.ledger.Close()
	}
}

// settle runs queued continuations until nothing is in flight. Interrupts
// abandon the live answer instead of killing the process.
func (r *repl) settle() error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sig:
			r.loop.Post(func() { r.sess.Controller.AbandonAll() })
		case <-done:
		}
	}()
	return r.loop.RunUntilIdle(r.ctx)
}

func (r *repl) prompt() string {
	title := r.sess.State.Title
	if title == "" {
		return PromptStyle.Render("cola> ")
	}
	return PromptStyle.Render(fmt.Sprintf("[%s] cola> ", util.Truncate(title, 30)))
}

func (r *repl) run(in lineReader, thread backend.ID) error {
	r.sess.Start()
	if !thread.IsZero() {
		r.screen.showHistory = true
		r.sess.Router.SelectThread(thread, "")
	}
	if err := r.settle(); err != nil {
		return err
	}
	fmt.Fprintln(r.e.out, DimStyle.Render("Type a question, or /help for commands."))

	for {
		line, err := in.ReadInput(r.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.e.out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := r.command(line); quit {
				return nil
			}
		} else {
			r.screen.SetInputText(line)
			_ = r.sess.Controller.Submit()
		}
		if err := r.settle(); err != nil {
			return err
		}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (r *repl) command(line string) (quit bool) {
	fields := strings.Fields(line)
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	out := r.e.out

	switch fields[0] {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/?":
		printKV(out, "/threads", "list threads")
		printKV(out, "/open N|ID", "switch to a thread (number from /threads or id)")
		printKV(out, "/new", "start an empty thread")
		printKV(out, "/delete [ID]", "delete a thread (default: the current one)")
		printKV(out, "/docs", "documents in the current thread")
		printKV(out, "/segments ID", "preview a document's segments")
		printKV(out, "/upload PATH", "upload a file into the current thread")
		printKV(out, "/export [FMT]", "write the current thread to a file (md, html, json)")
		printKV(out, "/quit", "leave")

	case "/threads":
		r.sess.Router.ReloadThreads()
		r.afterSettle(r.printThreads)

	case "/open":
		id, title, ok := r.resolveThread(arg)
		if !ok {
			r.screen.Notify(session.NoticeWarn, "Usage: /open N|ID (see /threads)")
			break
		}
		r.screen.showHistory = true
		r.sess.Router.SelectThread(id, title)

	case "/new":
		r.sess.NewThread()

	case "/delete":
		id := r.sess.State.Selected
		if arg != "" {
			if resolved, _, ok := r.resolveThread(arg); ok {
				id = resolved
			}
		}
		if id.IsZero() {
			r.screen.Notify(session.NoticeWarn, "No thread to delete.")
			break
		}
		r.sess.DeleteThread(id)

	case "/docs":
		r.sess.Router.ReloadDocuments()
		r.afterSettle(r.printDocuments)

	case "/segments":
		if arg == "" {
			r.screen.Notify(session.NoticeWarn, "Usage: /segments DOC_ID")
			break
		}
		r.sess.Router.SelectDocument(backend.ID(arg))
		r.afterSettle(r.printSegments)

	case "/upload":
		if arg == "" {
			r.screen.Notify(session.NoticeWarn, "Usage: /upload PATH")
			break
		}
		r.upload(util.ExpandHome(arg))

	case "/export":
		r.export(arg)

	default:
		r.screen.Notify(session.NoticeWarn, "Unknown command "+fields[0]+" (try /help)")
	}
	return false
}

// afterSettle runs fn once the loop is idle.
func (r *repl) afterSettle(fn func()) {
	if err := r.settle(); err == nil {
		fn()
	}
}

// resolveThread accepts a 1-based position in the last /threads listing or
// a raw id.
func (r *repl) resolveThread(arg string) (backend.ID, string, bool) {
	if arg == "" {
		return "", "", false
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(r.screen.Threads) {
		t := r.screen.Threads[n-1]
		return t.ID, t.Title, true
	}
	for _, t := range r.screen.Threads {
		if t.ID.String() == arg {
			return t.ID, t.Title, true
		}
	}
	return backend.ID(arg), "", true
}

func (r *repl) printThreads() {
	if r.screen.ThreadsErr != nil {
		fmt.Fprintln(r.e.out, ErrorStyle.Render("Could not load threads: "+util.StripControl(r.screen.ThreadsErr.Error())))
		return
	}
	if len(r.screen.Threads) == 0 {
		fmt.Fprintln(r.e.out, DimStyle.Render("No threads yet."))
		return
	}
	for i, t := range r.screen.Threads {
		title := util.StripControl(t.Title)
		if title == "" {
			title = r.e.cfg.Chat.PlaceholderPrefix + t.ID.String()
		}
		marker := "  "
		if t.ID == r.sess.State.Selected {
			marker = "* "
		}
		fmt.Fprintf(r.e.out, "%s%s %s %s\n", marker, TitleStyle.Render(fmt.Sprintf("%2d.", i+1)), title, DimStyle.Render("#"+t.ID.String()))
	}
}

func (r *repl) printDocuments() {
	if r.screen.DocumentsErr != nil {
		fmt.Fprintln(r.e.out, ErrorStyle.Render("Could not load documents: "+util.StripControl(r.screen.DocumentsErr.Error())))
		return
	}
	if len(r.screen.Documents) == 0 {
		fmt.Fprintln(r.e.out, DimStyle.Render("No documents."))
		return
	}
	for _, d := range r.screen.Documents {
		fmt.Fprintf(r.e.out, "%s %s %s\n", TitleStyle.Render(d.ID.String()), util.StripControl(d.Filename),
			DimStyle.Render(fmt.Sprintf("(%d segments)", d.SegmentCount)))
	}
}

func (r *repl) printSegments() {
	if r.screen.SegmentsErr != nil {
		fmt.Fprintln(r.e.out, ErrorStyle.Render("Could not load segments: "+util.StripControl(r.screen.SegmentsErr.Error())))
		return
	}
	if len(r.screen.Segments) == 0 {
		fmt.Fprintln(r.e.out, DimStyle.Render("No segments."))
		return
	}
	for _, s := range r.screen.Segments {
		fmt.Fprintf(r.e.out, "%s %s\n", TitleStyle.Render(fmt.Sprintf("#%d", s.Index)), util.StripControl(s.Preview))
	}
}

func (r *repl) upload(path string) {
	r.sess.UploadFile(r.uploader, path)
}

func (r *repl) export(format string) {
	id := r.sess.State.Selected
	if id.IsZero() {
		r.screen.Notify(session.NoticeWarn, "Open a thread to export.")
		return
	}
	if format == "" {
		format = "md"
	}
	opts := export.DefaultOptions()
	opts.TimezoneOffset = r.e.cfg.UI.TimezoneOffset
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		r.screen.Notify(session.NoticeWarn, err.Error())
		return
	}
	r.loop.Go(func() func() {
		var path string
		t, err := export.Fetch(r.ctx, r.client, id)
		if err == nil {
			path, err = export.ToFile(t, exporter, opts)
		}
		return func() {
			if err != nil {
				r.screen.Notify(session.NoticeError, "Export failed: "+err.Error())
				return
			}
			r.screen.Notify(session.NoticeInfo, "Exported to "+path)
		}
	})
}
