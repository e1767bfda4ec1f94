// Package callback completes the asynchronous external-redirect flows: the
// primary login callback, where the provider delivers tokens directly in
// redirect parameters, and the integration-connect callback, where an
// authorization code is exchanged through the backend.
//
// Each handler is a page-scoped, single-use state machine over
// pending/success/error. Every failure path ends in a human-readable message
// and a scheduled redirect, so no flow strands the user on a dead page.
package callback

import (
	"sync"
	"time"
)

// Status is a callback page's lifecycle state.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// Result is the terminal state of one callback handling. It lives only for
// the callback page's lifetime and is never persisted.
type Result struct {
	Status  Status
	Message string
}

// Navigator performs client-side navigation. The router's redirect function
// satisfies it.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// redirector owns a handler's single pending delayed redirect. The timer is
// tied to the handler's lifetime: Close stops it, so a torn-down page never
// fires a stale redirect on whatever is mounted next.
type redirector struct {
	nav Navigator

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

func (r *redirector) schedule(path string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(delay, func() {
		r.nav.Navigate(path)
	})
}

// Close cancels any pending redirect. Safe to call more than once.
func (r *redirector) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
}
