// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keyboard bindings.
type KeyMap struct {
	Focus     key.Binding
	FocusBack key.Binding
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Newline   key.Binding
	New       key.Binding
	Delete    key.Binding
	Confirm   key.Binding
	Abandon   key.Binding
	Refresh   key.Binding
	Export    key.Binding
	Upload    key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
		FocusBack: key.NewBinding(key.WithKeys("shift+tab")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send/select")),
		Newline:   key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new thread")),
		Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Confirm:   key.NewBinding(key.WithKeys("y", "Y")),
		Abandon:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop")),
		Refresh:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("C-r", "refresh")),
		Export:    key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("C-e", "export")),
		Upload:    key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("C-u", "upload")),
		PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("PgUp", "scroll up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("PgDn", "scroll down")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("C-c", "quit")),
	}
}

// ShortHelp lists the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.Enter, k.New, k.Delete, k.Abandon, k.Export, k.Upload, k.Quit}
}
