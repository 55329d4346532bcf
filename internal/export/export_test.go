// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cola-tui/internal/backend"
)

func sampleTranscript() *Transcript {
	return &Transcript{
		Thread: backend.Thread{ID: "7", Title: "Design: notes", CreatedAt: "2024-01-01T00:00:00Z"},
		Messages: []backend.Message{
			{Role: "user", Content: "What is <X>?", CreatedAt: "2024-01-01T00:00:01Z"},
			{Role: "assistant", Content: "X is **bold**.\n\n```go\nfmt.Println(1)\n```\n\n<script>alert(1)</script>", CreatedAt: "2024-01-01T00:00:02Z"},
		},
		Documents:  []backend.Document{{ID: "3", Filename: "a.pdf", SegmentCount: 4}},
		ExportedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	require.Contains(t, md, `title: "Design: notes"`)
	require.Contains(t, md, "# Design: notes")
	require.Contains(t, md, "### You <sub>2024-01-01 08:00:01</sub>")
	require.Contains(t, md, "- a.pdf (4 segments)")
	require.Contains(t, md, "```go\nfmt.Println(1)\n```")
}

func TestMarkdownExporter_ClosesOpenFence(t *testing.T) {
	tr := sampleTranscript()
	tr.Messages = []backend.Message{{Role: "assistant", Content: "```\nunterminated"}}
	out, err := NewMarkdownExporter(&Options{}).Export(tr)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(out), "```"))
}

func TestHTMLExporter_SanitizesAndHighlights(t *testing.T) {
	out, err := NewHTMLExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)
	page := string(out)

	require.Contains(t, page, "<title>Design: notes</title>")
	require.Contains(t, page, "What is &lt;X&gt;?")
	require.Contains(t, page, "<strong>bold</strong>")
	require.NotContains(t, page, "<script>")
	require.Contains(t, page, "dark-theme")
	require.Contains(t, page, "2024-01-01 08:00:02")
}

func TestJSONExporter_RoundTrips(t *testing.T) {
	tr := sampleTranscript()
	out, err := NewJSONExporter(nil).Export(tr)
	require.NoError(t, err)

	var back Transcript
	require.NoError(t, json.Unmarshal(out, &back))
	if diff := cmp.Diff(tr.Messages, back.Messages); diff != "" {
		t.Fatalf("messages differ (-want +got):\n%s", diff)
	}
	require.Equal(t, tr.Thread, back.Thread)
}

func TestExporters_RejectEmpty(t *testing.T) {
	empty := &Transcript{Thread: backend.Thread{ID: "1"}}
	for _, format := range []string{"md", "html"} {
		e, err := ForFormat(format, nil)
		require.NoError(t, err)
		_, err = e.Export(empty)
		require.ErrorIs(t, err, ErrEmptyTranscript, format)
	}
	_, err := ForFormat("pdf", nil)
	require.Error(t, err)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ToFile(sampleTranscript(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	require.Equal(t, dir, filepath.Dir(path))
	require.True(t, strings.HasPrefix(filepath.Base(path), "thread_7_Design-_notes_"))
	require.True(t, strings.HasSuffix(path, ".md"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Design: notes")
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "a-b_c", sanitizeFilename("a/b c"))
	require.Equal(t, "thread", sanitizeFilename(""))
	require.Len(t, []rune(sanitizeFilename(strings.Repeat("对", 80))), 50)
}

type fakeSource struct {
	docsErr error
}

func (fakeSource) ListThreads(context.Context) ([]backend.Thread, error) {
	return []backend.Thread{{ID: "1", Title: "one"}, {ID: "2", Title: "two"}}, nil
}

func (fakeSource) ListMessages(_ context.Context, id backend.ID) ([]backend.Message, error) {
	return []backend.Message{{Role: "user", Content: "q" + id.String()}}, nil
}

func (f fakeSource) ListDocuments(context.Context, backend.ID) ([]backend.Document, error) {
	return nil, f.docsErr
}

func TestFetch(t *testing.T) {
	tr, err := Fetch(context.Background(), fakeSource{docsErr: errors.New("down")}, "2")
	require.NoError(t, err)
	require.Equal(t, "two", tr.Title())
	require.Equal(t, "q2", tr.Messages[0].Content)
	require.Nil(t, tr.Documents)

	_, err = Fetch(context.Background(), fakeSource{}, "")
	require.Error(t, err)
}
