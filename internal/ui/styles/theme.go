// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the interface.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// PANES
	// ==========================================================================

	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	PaneTitle   lipgloss.Style

	// ==========================================================================
	// LISTS
	// ==========================================================================

	ListItem     lipgloss.Style
	ListSelected lipgloss.Style
	ListCursor   lipgloss.Style
	ListMeta     lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	Header          lipgloss.Style
	UserStatus      lipgloss.Style
	AssistantStatus lipgloss.Style
	Placeholder     lipgloss.Style
	UserBody        lipgloss.Style
	ErrorLine       lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS BAR
	// ==========================================================================

	Input         lipgloss.Style
	InputDisabled lipgloss.Style
	StatusBar     lipgloss.Style
	StatusKey     lipgloss.Style
	Spinner       lipgloss.Style
	Prompt        lipgloss.Style
}

// NewTheme builds a theme. name is "dark", "light" or anything else for
// terminal detection.
func NewTheme(name string) *Theme {
	profile := termenv.ColorProfile()
	var isDark bool
	switch name {
	case "dark":
		isDark = true
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(OverlayDim).
		Padding(0, 1)
	t.PaneFocused = t.Pane.BorderForeground(FocusRing)
	t.PaneTitle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)

	t.ListItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.ListSelected = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.ListCursor = lipgloss.NewStyle().Background(SelectionBg)
	t.ListMeta = lipgloss.NewStyle().Foreground(TextMuted)

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		Background(SurfaceDim).
		Padding(0, 1)
	t.UserStatus = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantStatus = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Placeholder = lipgloss.NewStyle().Italic(true).Foreground(TextMuted)
	t.UserBody = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.ErrorLine = lipgloss.NewStyle().Bold(true).Foreground(Rose)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan)
	t.InputDisabled = t.Input.BorderForeground(OverlayDim)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Background(SurfaceDim)
	t.StatusKey = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.Spinner = lipgloss.NewStyle().Foreground(Amber)
	t.Prompt = lipgloss.NewStyle().Bold(true).Foreground(Amber)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the layout mode for the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 80 {
		return LayoutNarrow
	}
	return LayoutWide
}

// SidebarWidth returns the width of the thread/document column, zero in
// narrow layouts.
func (t *Theme) SidebarWidth() int {
	if t.GetLayoutMode() == LayoutNarrow {
		return 0
	}
	w := t.Width / 4
	if w < 24 {
		w = 24
	}
	if w > 40 {
		w = 40
	}
	return w
}

// LayoutMode represents the responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 80 columns: message pane only
	LayoutWide
)
