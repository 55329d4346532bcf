// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// runMsg carries a continuation back into Update.
type runMsg struct {
	fn func()
}

// teaDispatcher turns session work into tea commands. Commands collected
// during one Update are returned together by drain.
type teaDispatcher struct {
	cmds []tea.Cmd
}

// Go implements session.Dispatcher.
func (d *teaDispatcher) Go(work func() func()) {
	d.cmds = append(d.cmds, func() tea.Msg {
		return runMsg{fn: work()}
	})
}

// After implements session.Dispatcher.
func (d *teaDispatcher) After(delay time.Duration, fn func()) {
	d.cmds = append(d.cmds, tea.Tick(delay, func(time.Time) tea.Msg {
		return runMsg{fn: fn}
	}))
}

func (d *teaDispatcher) drain() tea.Cmd {
	if len(d.cmds) == 0 {
		return nil
	}
	cmds := d.cmds
	d.cmds = nil
	return tea.Batch(cmds...)
}
