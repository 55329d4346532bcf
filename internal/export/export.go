// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/util"
)

// ErrEmptyTranscript is returned for threads without messages.
var ErrEmptyTranscript = errors.New("thread has no messages")

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is everything exported for one thread.
type Transcript struct {
	Thread     backend.Thread     `json:"thread"`
	Messages   []backend.Message  `json:"messages"`
	Documents  []backend.Document `json:"documents,omitempty"`
	ExportedAt time.Time          `json:"exported_at"`
}

// Source is the part of the backend API a transcript is built from.
type Source interface {
	ListThreads(ctx context.Context) ([]backend.Thread, error)
	ListMessages(ctx context.Context, id backend.ID) ([]backend.Message, error)
	ListDocuments(ctx context.Context, thread backend.ID) ([]backend.Document, error)
}

// Fetch loads the transcript of thread. A failing document listing is not
// fatal.
func Fetch(ctx context.Context, src Source, thread backend.ID) (*Transcript, error) {
	if thread.IsZero() {
		return nil, errors.New("no thread selected")
	}

	threads, err := src.ListThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	t := &Transcript{Thread: backend.Thread{ID: thread}, ExportedAt: time.Now()}
	for _, th := range threads {
		if th.ID == thread {
			t.Thread = th
			break
		}
	}

	t.Messages, err = src.ListMessages(ctx, thread)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if docs, err := src.ListDocuments(ctx, thread); err == nil {
		t.Documents = docs
	}
	return t, nil
}

// Title returns the thread title or a fallback.
func (t *Transcript) Title() string {
	if t.Thread.Title != "" {
		return t.Thread.Title
	}
	return "Thread " + t.Thread.ID.String()
}

func (t *Transcript) validate() error {
	if t == nil {
		return errors.New("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return ErrEmptyTranscript
	}
	return nil
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string

	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds the frontmatter / header block.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool

	// TimezoneOffset is the whole-hour UTC offset for timestamps.
	TimezoneOffset int

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		TimezoneOffset:    8,
		Theme:             "dark",
	}
}

// ForFormat returns the exporter for "md", "markdown", "html" or "json".
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	}
	return nil, fmt.Errorf("unknown export format %q (want md, html or json)", format)
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile exports t with exporter and returns the written path.
func ToFile(t *Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("thread_%s_%s_%s%s",
		sanitizeFilename(t.Thread.ID.String()),
		sanitizeFilename(t.Title()),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension(),
	)

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			return outputPath, fmt.Errorf("exported, but could not open %s: %w", outputPath, err)
		}
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	const maxLen = 50
	runes := []rune(s)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "thread"
	}
	return string(result)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

// stamp renders a server timestamp in the configured zone, or returns it
// unchanged when it does not parse.
func stamp(raw string, offset int) string {
	t, err := util.ParseTimestamp(raw, offset)
	if err != nil || t.IsZero() {
		return raw
	}
	return util.FormatTimestamp(t, offset)
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return "You"
	case "assistant":
		return "Assistant"
	case "system":
		return "System"
	}
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
