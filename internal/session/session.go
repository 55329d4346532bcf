// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/uploads"
)

// Session owns the state of one client run and the components that act on it.
type Session struct {
	State      *State
	Router     *Router
	Controller *Controller

	cfg    Config
	be     Backend
	view   Presenter
	d      Dispatcher
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New wires a session. Nothing is loaded until the first SelectThread.
func New(cfg Config, be Backend, view Presenter, d Dispatcher, logger zerolog.Logger) *Session {
	if cfg.PlaceholderPrefix == "" {
		cfg.PlaceholderPrefix = DefaultConfig().PlaceholderPrefix
	}
	ctx, cancel := context.WithCancel(context.Background())
	st := NewState()
	router := &Router{st: st, be: be, view: view, d: d, ctx: ctx, log: logger}
	return &Session{
		State:  st,
		Router: router,
		Controller: &Controller{
			st: st, cfg: cfg, be: be, view: view, d: d,
			router: router, ctx: ctx, log: logger,
		},
		cfg:    cfg,
		be:     be,
		view:   view,
		d:      d,
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start shows the initial "no thread" screen and loads the lists.
func (s *Session) Start() {
	s.Router.SelectThread("", "")
}

// Close abandons live streams and cancels outstanding requests.
func (s *Session) Close() {
	s.Controller.AbandonAll()
	s.cancel()
}

// NewThread creates an empty thread on the server and selects it under its
// placeholder title.
func (s *Session) NewThread() {
	s.d.Go(func() func() {
		id, err := s.be.CreateThread(s.ctx, "")
		return func() {
			if err != nil {
				s.view.Notify(NoticeError, "Could not create a thread: "+err.Error())
				return
			}
			s.Router.SelectThread(id, s.cfg.PlaceholderPrefix+id.String())
		}
	})
}

// DeleteThread deletes id on the server. A live stream of id is abandoned
// first; deleting the selected thread returns to the "no thread" state.
func (s *Session) DeleteThread(id ThreadID) {
	if id.IsZero() {
		return
	}
	s.Controller.Abandon(id)
	s.d.Go(func() func() {
		err := s.be.DeleteThread(s.ctx, id)
		return func() {
			if err != nil && !errors.Is(err, backend.ErrNotFound) {
				s.view.Notify(NoticeError, "Delete failed: "+err.Error())
				return
			}
			s.view.Notify(NoticeInfo, "Thread deleted.")
			if s.State.Selected == id {
				s.Router.Deselect()
			} else {
				s.Router.ReloadThreads()
			}
			s.State.forget(id)
		}
	})
}

// DeleteDocument deletes doc within the selected thread's scope.
func (s *Session) DeleteDocument(doc ThreadID) {
	thread := s.State.Selected
	s.d.Go(func() func() {
		err := s.be.DeleteDocument(s.ctx, doc, thread)
		return func() {
			if err != nil {
				s.view.Notify(NoticeError, "Delete failed: "+err.Error())
				return
			}
			s.view.Notify(NoticeInfo, "Document deleted.")
			s.view.ResetSegmentPreview()
			s.Router.ReloadDocuments()
		}
	})
}

// UploadFile sends path into the selected thread through u. When nothing is
// selected and the server answers with the thread it filed the document
// under, that thread becomes the selection.
func (s *Session) UploadFile(u FileUploader, path string) {
	thread := s.State.Selected
	name := filepath.Base(path)
	s.d.Go(func() func() {
		res, err := u.UploadFile(s.ctx, path, thread)
		return func() { s.Uploaded(name, res, err) }
	})
}

// Uploaded applies the outcome of an upload.
func (s *Session) Uploaded(name string, res *backend.UploadResult, err error) {
	if errors.Is(err, uploads.ErrAlreadyUploaded) {
		s.view.Notify(NoticeInfo, "Skipped "+name+": already uploaded to this thread.")
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("upload failed")
		s.view.Notify(NoticeError, "Upload of "+name+" failed: "+err.Error())
		return
	}
	msg := "Uploaded " + name
	if res.Message != "" {
		msg += ": " + res.Message
	}
	s.view.Notify(NoticeInfo, msg)
	if s.State.Selected.IsZero() && !res.ThreadID.IsZero() {
		s.Router.SelectThread(res.ThreadID, "")
		return
	}
	s.Router.ReloadDocuments()
}
