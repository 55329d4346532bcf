// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"
)

// Dispatcher bridges blocking work and the single state-owning goroutine.
type Dispatcher interface {
	// Go runs work on another goroutine. The continuation it returns, if
	// non-nil, runs later on the state-owning goroutine.
	Go(work func() func())
	// After runs fn on the state-owning goroutine once d has elapsed.
	After(d time.Duration, fn func())
}

// =============================================================================
// LOOP
// =============================================================================

// Loop is a Dispatcher for callers without a UI event loop (the line REPL
// and tests). Continuations queue up and run on whichever goroutine calls
// one of the Run methods.
type Loop struct {
	mu       sync.Mutex
	queue    []func()
	inflight int
	wake     chan struct{}
}

// NewLoop returns an idle loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Go implements Dispatcher.
func (l *Loop) Go(work func() func()) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()

	go func() {
		l.enqueue(work())
	}()
}

// After implements Dispatcher.
func (l *Loop) After(d time.Duration, fn func()) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()

	time.AfterFunc(d, func() { l.enqueue(fn) })
}

// Post queues fn to run on the loop. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()
	l.enqueue(fn)
}

// enqueue hands over an already counted item. A nil fn only settles the count.
func (l *Loop) enqueue(fn func()) {
	l.mu.Lock()
	if fn == nil {
		l.inflight--
	} else {
		l.queue = append(l.queue, fn)
	}
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// step runs one queued item; it reports false when the queue was empty.
func (l *Loop) step() bool {
	l.mu.Lock()
	if len(l.queue) == 0 {
		l.mu.Unlock()
		return false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.mu.Unlock()

	fn()

	l.mu.Lock()
	l.inflight--
	l.mu.Unlock()
	return true
}

// Pending returns the number of queued or running items.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight
}

// RunUntil processes items until cond holds or ctx ends. cond is checked
// before waiting and after every item.
func (l *Loop) RunUntil(ctx context.Context, cond func() bool) error {
	for {
		if cond() {
			return nil
		}
		if l.step() {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunUntilIdle processes items until nothing is queued, running or scheduled.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	return l.RunUntil(ctx, func() bool { return l.Pending() == 0 })
}

// Run processes items until ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	return l.RunUntil(ctx, func() bool { return false })
}
