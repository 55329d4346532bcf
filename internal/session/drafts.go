// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// NewThreadDraftKey is the draft key of the not-yet-created thread.
const NewThreadDraftKey = "__new__"

// DraftKey maps a thread to its draft slot. Only the empty thread maps to
// NewThreadDraftKey; every concrete id gets its own "t_" key.
func DraftKey(id ThreadID) string {
	if id.IsZero() {
		return NewThreadDraftKey
	}
	return "t_" + id.String()
}

// DraftStore holds unsent input text per thread.
type DraftStore struct {
	drafts map[string]string
}

// NewDraftStore returns an empty store.
func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[string]string)}
}

// Save stores text for id, overwriting any previous draft.
func (s *DraftStore) Save(id ThreadID, text string) {
	s.drafts[DraftKey(id)] = text
}

// Load returns the draft for id or "".
func (s *DraftStore) Load(id ThreadID) string {
	return s.drafts[DraftKey(id)]
}

// Clear removes the draft for id.
func (s *DraftStore) Clear(id ThreadID) {
	delete(s.drafts, DraftKey(id))
}

// Migrate moves the draft of from onto to, replacing whatever to held.
// Nothing happens when from has no draft.
func (s *DraftStore) Migrate(from, to ThreadID) {
	text, ok := s.drafts[DraftKey(from)]
	if !ok {
		return
	}
	delete(s.drafts, DraftKey(from))
	s.drafts[DraftKey(to)] = text
}

// Len returns the number of stored drafts.
func (s *DraftStore) Len() int {
	return len(s.drafts)
}
