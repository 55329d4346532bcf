// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// STREAM RECORD
// =============================================================================

// Record is one in-flight generation. Its buffer only grows.
type Record struct {
	Thread    ThreadID
	Question  string
	StartedAt time.Time
	// View is the answer container this record owns.
	View AnswerView

	buf    strings.Builder
	frames int
	stream FrameStream
	cancel context.CancelFunc
}

// Append adds a content piece to the accumulated answer.
func (r *Record) Append(piece string) {
	r.buf.WriteString(piece)
	r.frames++
}

// Text returns everything received so far.
func (r *Record) Text() string {
	return r.buf.String()
}

// Frames returns how many content pieces have been appended.
func (r *Record) Frames() int {
	return r.frames
}

// close cancels the request and closes the connection; safe to repeat.
func (r *Record) close() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.stream != nil {
		r.stream.Close()
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps threads to in-flight generations. It admits at most one
// record at a time, across all threads.
type Registry struct {
	records map[ThreadID]*Record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[ThreadID]*Record)}
}

// TryBegin registers a generation for id. It fails with ErrGenerationActive
// if any record exists, whichever thread it belongs to.
func (g *Registry) TryBegin(id ThreadID) (*Record, error) {
	if len(g.records) > 0 {
		return nil, ErrGenerationActive
	}
	rec := &Record{Thread: id}
	g.records[id] = rec
	return rec, nil
}

// End removes the record for id, if any.
func (g *Registry) End(id ThreadID) {
	delete(g.records, id)
}

// Get returns the record for id or nil.
func (g *Registry) Get(id ThreadID) *Record {
	return g.records[id]
}

// IsAnyActive reports whether any generation is in flight.
func (g *Registry) IsAnyActive() bool {
	return len(g.records) > 0
}

// Len returns the number of records.
func (g *Registry) Len() int {
	return len(g.records)
}

// Active returns all records ordered by thread id.
func (g *Registry) Active() []*Record {
	out := make([]*Record, 0, len(g.records))
	for _, rec := range g.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Thread < out[j].Thread })
	return out
}

// owns reports whether rec is still the live record of its thread. Stale
// continuations of an abandoned record must not touch anything.
func (g *Registry) owns(rec *Record) bool {
	return rec != nil && g.records[rec.Thread] == rec
}
