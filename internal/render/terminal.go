// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/cola-tui/internal/util"
)

// Terminal renders markdown for the terminal with glamour. Renderers are
// built per wrap width and cached; a failed build falls back to plain text.
type Terminal struct {
	theme string

	mu        sync.Mutex
	wrap      int
	renderers map[int]*glamour.TermRenderer
}

// NewTerminal creates a renderer. theme is "dark", "light" or "auto".
func NewTerminal(theme string, wrap int) *Terminal {
	return &Terminal{
		theme:     theme,
		wrap:      wrap,
		renderers: make(map[int]*glamour.TermRenderer),
	}
}

// SetWidth changes the wrap width used by Render.
func (t *Terminal) SetWidth(wrap int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if wrap > 0 {
		t.wrap = wrap
	}
}

func (t *Terminal) renderer() *glamour.TermRenderer {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.renderers[t.wrap]; ok {
		return r
	}
	styleOpt := glamour.WithStandardStyle(t.theme)
	if t.theme == "" || t.theme == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(t.wrap))
	if err != nil {
		r = nil
	}
	t.renderers[t.wrap] = r
	return r
}

// Render formats markdown. It never fails; on renderer errors the cleaned
// source text comes back unchanged.
func (t *Terminal) Render(markdown string) string {
	clean := util.StripControl(markdown)
	if strings.TrimSpace(clean) == "" {
		return ""
	}
	r := t.renderer()
	if r == nil {
		return clean
	}
	out, err := r.Render(clean)
	if err != nil {
		return clean
	}
	return strings.Trim(out, "\n")
}

// Plain is the identity renderer with control sequences removed.
func Plain(markdown string) string {
	return util.StripControl(markdown)
}
