// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "strings"

// State is the process-lifetime session state shared by Router and
// Controller. Only Router changes the selection.
type State struct {
	Selected ThreadID
	Title    string

	Drafts  *DraftStore
	Streams *Registry

	titles         map[ThreadID]string
	titleRequested map[ThreadID]bool
}

// NewState returns state with nothing selected.
func NewState() *State {
	return &State{
		Drafts:         NewDraftStore(),
		Streams:        NewRegistry(),
		titles:         make(map[ThreadID]string),
		titleRequested: make(map[ThreadID]bool),
	}
}

// TitleOf returns the locally known title of id.
func (s *State) TitleOf(id ThreadID) string {
	return s.titles[id]
}

// rememberTitle caches a title without changing the selection.
func (s *State) rememberTitle(id ThreadID, title string) {
	if id.IsZero() || strings.TrimSpace(title) == "" {
		return
	}
	s.titles[id] = title
}

// forget drops everything cached about a deleted thread.
func (s *State) forget(id ThreadID) {
	delete(s.titles, id)
	delete(s.titleRequested, id)
	s.Drafts.Clear(id)
}
