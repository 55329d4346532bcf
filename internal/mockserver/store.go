// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// maxTitleRunes bounds generated titles.
const maxTitleRunes = 80

type thread struct {
	ID        int64
	Title     string
	CreatedAt time.Time
}

type message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

type document struct {
	ID        int64
	Filename  string
	ThreadID  int64
	StoredAt  time.Time
	Segments  []string
	VectorIDs []string
}

// store is the server's state. All methods are safe for concurrent use.
type store struct {
	mu       sync.Mutex
	now      func() time.Time
	nextID   int64
	nextDoc  int64
	threads  map[int64]*thread
	messages map[int64][]message
	docs     map[int64]*document
}

func newStore(now func() time.Time) *store {
	return &store{
		now:      now,
		threads:  make(map[int64]*thread),
		messages: make(map[int64][]message),
		docs:     make(map[int64]*document),
	}
}

func (s *store) createThread(title string) *thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &thread{ID: s.nextID, Title: title, CreatedAt: s.now()}
	s.threads[t.ID] = t
	return t
}

// listThreads returns threads newest first.
func (s *store) listThreads() []thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *store) getThread(id int64) (thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return thread{}, false
	}
	return *t, true
}

func (s *store) setTitle(id int64, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if ok {
		t.Title = title
	}
	return ok
}

// deleteThread removes the thread with its messages and scoped documents.
func (s *store) deleteThread(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		return false
	}
	delete(s.threads, id)
	delete(s.messages, id)
	for docID, d := range s.docs {
		if d.ThreadID == id {
			delete(s.docs, docID)
		}
	}
	return true
}

func (s *store) addMessage(id int64, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[id] = append(s.messages[id], message{Role: role, Content: content, CreatedAt: s.now()})
}

func (s *store) listMessages(id int64) ([]message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		return nil, false
	}
	return append([]message(nil), s.messages[id]...), true
}

func (s *store) addDocument(filename string, threadID int64, text string) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDoc++
	d := &document{ID: s.nextDoc, Filename: filename, ThreadID: threadID, StoredAt: s.now()}
	d.Segments = segment(text)
	for i := range d.Segments {
		d.VectorIDs = append(d.VectorIDs, vectorID(d.ID, i))
	}
	s.docs[d.ID] = d
	return d
}

// listDocuments returns documents in thread, or every document for 0.
func (s *store) listDocuments(threadID int64) []document {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []document
	for _, d := range s.docs {
		if threadID == 0 || d.ThreadID == threadID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *store) getDocument(id int64) (document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return document{}, false
	}
	return *d, true
}

func (s *store) deleteDocument(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
}

// segment splits text into paragraph chunks.
func segment(text string) []string {
	var out []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p := strings.TrimSpace(para); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{strings.TrimSpace(text)}
	}
	return out
}

func vectorID(doc int64, index int) string {
	return "vec-" + itoa(doc) + "-" + itoa(int64(index))
}

// titleFor derives a thread title from the first question.
func titleFor(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = strings.TrimSpace(string([]rune(title)[:maxTitleRunes])) + "..."
	}
	return title
}
