// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to a standalone HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(t.Title()))
	sb.WriteString("    <meta name=\"generator\" content=\"cola\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", t.ExportedAt.Format(time.RFC3339))

	sb.WriteString("    <style>\n")
	sb.WriteString(pageCSS)
	if err := render.WriteCodeCSS(&sb); err != nil {
		return nil, fmt.Errorf("code styles: %w", err)
	}
	sb.WriteString("    </style>\n</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n<div class=\"container\">\n", theme)

	if e.options.IncludeMetadata {
		e.writeHeader(&sb, t)
	}

	sb.WriteString("<main class=\"conversation\">\n")
	for _, msg := range t.Messages {
		if err := e.writeMessage(&sb, msg); err != nil {
			return nil, err
		}
	}
	sb.WriteString("</main>\n")

	fmt.Fprintf(&sb, "<footer class=\"footer\"><p>Exported from <strong>cola</strong> on %s</p></footer>\n",
		t.ExportedAt.Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

func (e *HTMLExporter) FileExtension() string { return ".html" }

func (e *HTMLExporter) MimeType() string { return "text/html" }

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) writeHeader(sb *strings.Builder, t *Transcript) {
	sb.WriteString("<header class=\"header\">\n")
	fmt.Fprintf(sb, "    <h1>%s</h1>\n", html.EscapeString(t.Title()))
	sb.WriteString("    <div class=\"metadata\">\n")
	fmt.Fprintf(sb, "        <span class=\"meta-item\"><strong>Thread:</strong> %s</span>\n", html.EscapeString(t.Thread.ID.String()))
	if t.Thread.CreatedAt != "" {
		fmt.Fprintf(sb, "        <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n",
			html.EscapeString(stamp(t.Thread.CreatedAt, e.options.TimezoneOffset)))
	}
	fmt.Fprintf(sb, "        <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(t.Messages))
	sb.WriteString("    </div>\n")
	if len(t.Documents) > 0 {
		sb.WriteString("    <ul class=\"documents\">\n")
		for _, d := range t.Documents {
			fmt.Fprintf(sb, "        <li>%s <span class=\"muted\">(%d segments)</span></li>\n",
				html.EscapeString(d.Filename), d.SegmentCount)
		}
		sb.WriteString("    </ul>\n")
	}
	sb.WriteString("</header>\n")
}

func (e *HTMLExporter) writeMessage(sb *strings.Builder, msg backend.Message) error {
	role := strings.ToLower(msg.Role)
	if role != "user" {
		role = "assistant"
	}
	fmt.Fprintf(sb, "<div class=\"message %s-message\">\n", role)
	sb.WriteString("    <div class=\"message-header\">\n")
	fmt.Fprintf(sb, "        <span class=\"role-label\">%s</span>\n", html.EscapeString(roleLabel(msg.Role)))
	if e.options.IncludeTimestamps && msg.CreatedAt != "" {
		fmt.Fprintf(sb, "        <span class=\"timestamp\">%s</span>\n",
			html.EscapeString(stamp(msg.CreatedAt, e.options.TimezoneOffset)))
	}
	sb.WriteString("    </div>\n    <div class=\"message-content\">\n")

	if role == "user" {
		sb.WriteString(plainParagraphs(msg.Content))
	} else {
		body, err := render.HTML(msg.Content)
		if err != nil {
			return fmt.Errorf("render message: %w", err)
		}
		sb.WriteString(body)
	}

	sb.WriteString("\n    </div>\n</div>\n")
	return nil
}

// plainParagraphs escapes text and keeps its line structure.
func plainParagraphs(text string) string {
	var sb strings.Builder
	for _, para := range strings.Split(strings.TrimSpace(text), "\n\n") {
		lines := strings.Split(para, "\n")
		for i := range lines {
			lines[i] = html.EscapeString(lines[i])
		}
		sb.WriteString("<p>" + strings.Join(lines, "<br>") + "</p>\n")
	}
	return sb.String()
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const pageCSS = `
* { margin: 0; padding: 0; box-sizing: border-box; }
:root {
    --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
    --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
}
.dark-theme {
    --bg-primary: #1a1b26; --bg-secondary: #24283b; --text-primary: #c0caf5;
    --text-muted: #565f89; --accent: #7aa2f7; --user: #9ece6a; --border: #414868;
}
.light-theme {
    --bg-primary: #f5f5f5; --bg-secondary: #ffffff; --text-primary: #1a1b26;
    --text-muted: #6b7280; --accent: #2563eb; --user: #15803d; --border: #d1d5db;
}
body { font-family: var(--font-sans); background: var(--bg-primary); color: var(--text-primary); line-height: 1.6; }
.container { max-width: 900px; margin: 0 auto; padding: 2rem 1rem; }
.header { border-bottom: 1px solid var(--border); padding-bottom: 1rem; margin-bottom: 1.5rem; }
.metadata { display: flex; flex-wrap: wrap; gap: 1rem; color: var(--text-muted); font-size: 0.9rem; }
.documents { margin: 0.5rem 0 0 1.5rem; font-size: 0.9rem; }
.muted { color: var(--text-muted); }
.message { background: var(--bg-secondary); border: 1px solid var(--border); border-radius: 8px; padding: 1rem; margin-bottom: 1rem; }
.message-header { display: flex; justify-content: space-between; margin-bottom: 0.5rem; font-size: 0.85rem; }
.user-message .role-label { color: var(--user); font-weight: 600; }
.assistant-message .role-label { color: var(--accent); font-weight: 600; }
.timestamp { color: var(--text-muted); }
.message-content p { margin: 0.5rem 0; }
.message-content pre { padding: 0.75rem; border-radius: 6px; overflow-x: auto; font-family: var(--font-mono); font-size: 0.85rem; }
.message-content code { font-family: var(--font-mono); }
.message-content table { border-collapse: collapse; }
.message-content th, .message-content td { border: 1px solid var(--border); padding: 0.25rem 0.5rem; }
.footer { margin-top: 2rem; color: var(--text-muted); font-size: 0.8rem; text-align: center; }
`
