// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the cola TUI.
//
// Colors are lipgloss.AdaptiveColor values so light and dark terminals both
// read well. Theme groups the styles for each pane and is rebuilt when the
// configured theme changes.
//
// # Accessibility
//
// Status lines carry ASCII shape indicators ([OK], [X], [!], [i]) next to
// their color so they do not depend on color perception.
package styles
