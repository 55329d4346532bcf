// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session is the multi-thread streaming-answer session manager.
//
// It tracks which thread is generating an answer, feeds the single streamed
// connection into that thread's answer view, and keeps a generation alive
// and growing while the user looks at a different thread.
//
// # Key Types
//
//   - DraftStore: unsent input text per thread, keyed by DraftKey
//   - Registry: single-flight table of in-flight generations
//   - Router: switches the visible thread and relocates live answer views
//   - Controller: one question/answer exchange from submit to finalize
//   - Session: the state object that owns all of the above
//   - Dispatcher: runs blocking work off the loop and continuations on it
//
// # Execution Model
//
// Nothing in this package locks. Every method of Router, Controller and
// Session must be called from one goroutine: the bubbletea Update loop or a
// Loop. Blocking calls (HTTP, stream reads) go through Dispatcher.Go and
// come back as continuations on that same goroutine, so a registry
// check-and-insert always happens within a single turn.
//
// # Usage
//
//	loop := session.NewLoop()
//	s := session.New(session.DefaultConfig(), session.FromClient(client), screen, loop, logger)
//	s.Router.SelectThread("", "")
//	screen.SetInputText("What is X?")
//	_ = s.Controller.Submit()
//	_ = loop.RunUntilIdle(ctx)
package session
