// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cola-tui/internal/backend"
)

// Router owns thread selection and decides where live answer views hang.
type Router struct {
	st   *State
	be   Backend
	view Presenter
	d    Dispatcher
	ctx  context.Context
	log  zerolog.Logger

	threadsSeq  uint64
	docsSeq     uint64
	historySeq  uint64
	segmentsSeq uint64
}

// SelectThread makes id the visible thread. The outgoing thread's input is
// saved as its draft before the selection changes. An empty title falls back
// to the locally cached one.
func (r *Router) SelectThread(id ThreadID, title string) {
	r.st.Drafts.Save(r.st.Selected, r.view.InputText())

	if title == "" {
		title = r.st.TitleOf(id)
	}
	r.st.rememberTitle(id, title)
	r.st.Selected = id
	r.st.Title = title
	r.view.SetThreadTitle(title)

	r.view.SetInputText(r.st.Drafts.Load(id))
	r.view.ResetSegmentPreview()

	r.log.Debug().Str("thread", id.String()).Msg("thread selected")

	r.ReloadThreads()
	r.ReloadDocuments()
	r.ReloadHistory()
}

// Deselect returns to the "no thread" state.
func (r *Router) Deselect() {
	r.SelectThread("", "")
}

// ReloadThreads refreshes the thread list. Out-of-order answers are dropped.
func (r *Router) ReloadThreads() {
	r.threadsSeq++
	seq := r.threadsSeq
	r.d.Go(func() func() {
		threads, err := r.be.ListThreads(r.ctx)
		return func() {
			if seq != r.threadsSeq {
				return
			}
			if err != nil {
				r.log.Warn().Err(err).Msg("thread list failed")
				r.view.ShowThreadsError(err)
				return
			}
			for _, t := range threads {
				if r.st.TitleOf(t.ID) == "" {
					r.st.rememberTitle(t.ID, t.Title)
				}
			}
			r.view.ShowThreads(threads, r.st.Selected)
		}
	})
}

// ReloadDocuments refreshes the document list of the selected thread.
func (r *Router) ReloadDocuments() {
	r.docsSeq++
	seq := r.docsSeq
	thread := r.st.Selected
	r.d.Go(func() func() {
		docs, err := r.be.ListDocuments(r.ctx, thread)
		return func() {
			if seq != r.docsSeq || thread != r.st.Selected {
				return
			}
			if err != nil {
				r.log.Warn().Err(err).Str("thread", thread.String()).Msg("document list failed")
				r.view.ShowDocumentsError(err)
				return
			}
			r.view.ShowDocuments(docs)
		}
	})
}

// ReloadHistory reloads the selected thread's messages. Results that arrive
// after the selection moved on, or after a newer reload started, are dropped.
func (r *Router) ReloadHistory() {
	r.historySeq++
	seq := r.historySeq
	thread := r.st.Selected

	if thread.IsZero() {
		r.relocate(r.view.ShowNoThread)
		return
	}

	r.relocate(r.view.ShowHistoryLoading)
	r.d.Go(func() func() {
		msgs, err := r.be.ListMessages(r.ctx, thread)
		return func() {
			if seq != r.historySeq || thread != r.st.Selected {
				r.log.Debug().Str("thread", thread.String()).Msg("stale history dropped")
				return
			}
			if err != nil {
				r.log.Warn().Err(err).Str("thread", thread.String()).Msg("history load failed")
				r.relocate(func() { r.view.ShowHistoryError(err) })
				return
			}
			r.relocate(func() { r.view.ShowHistory(msgs) })
		}
	})
}

// relocate redraws the visible message area without losing live answers:
// every active answer view is parked first, draw replaces the visible area,
// then the selected thread's view (if it is generating) is mounted at the end.
func (r *Router) relocate(draw func()) {
	for _, rec := range r.st.Streams.Active() {
		if rec.View != nil {
			r.view.Park(rec.View)
		}
	}
	draw()
	if rec := r.st.Streams.Get(r.st.Selected); rec != nil && rec.View != nil {
		r.view.Mount(rec.View)
	}
}

// SelectDocument loads the segment preview of doc.
func (r *Router) SelectDocument(doc ThreadID) {
	r.segmentsSeq++
	seq := r.segmentsSeq
	r.d.Go(func() func() {
		segs, err := r.be.ListSegments(r.ctx, doc)
		return func() {
			if seq != r.segmentsSeq {
				return
			}
			if err != nil {
				r.view.ShowSegmentsError(doc, err)
				return
			}
			r.view.ShowSegments(doc, segs)
		}
	})
}

// ApplyTitle records a title for id and shows it if id is selected.
func (r *Router) ApplyTitle(id ThreadID, title string) {
	if title == "" {
		return
	}
	r.st.rememberTitle(id, title)
	if id == r.st.Selected {
		r.st.Title = title
		r.view.SetThreadTitle(title)
	}
}

// adopt makes a freshly created thread the selection without a history
// round trip: the thread is known to be empty. The "no thread" draft moves
// over to it.
func (r *Router) adopt(id ThreadID, title string) {
	r.st.Drafts.Migrate("", id)
	r.st.rememberTitle(id, title)
	r.st.Selected = id
	r.st.Title = title
	r.view.SetThreadTitle(title)
	r.historySeq++
	r.relocate(func() { r.view.ShowHistory([]backend.Message{}) })
	r.ReloadDocuments()
}
