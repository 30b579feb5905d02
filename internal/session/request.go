// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aidarkhanov/nanoid"
)

const (
	requestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	requestIDLength   = 12
)

// NewRequestID returns a short random id for a submission.
func NewRequestID() string {
	id, err := nanoid.Generate(requestIDAlphabet, requestIDLength)
	if err != nil {
		return "req_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return "req_" + id
}

// =============================================================================
// REQUEST
// =============================================================================

// Request is the cancellation authority for one submission. All attempts of
// the submission share its id. Once cancelled it stays cancelled.
//
// Request must be used as a pointer; it holds a mutex.
type Request struct {
	id     string
	parent context.Context
	start  time.Time

	mu        sync.Mutex
	cancelled bool
	done      chan struct{}
	closed    bool
	active    context.CancelFunc
	activeN   int
	attempts  int

	stopParent func() bool
}

// NewRequest creates a request bound to parent. Cancelling parent cancels the
// request.
func NewRequest(parent context.Context) *Request {
	if parent == nil {
		parent = context.Background()
	}
	r := &Request{
		id:     NewRequestID(),
		parent: parent,
		start:  time.Now(),
		done:   make(chan struct{}),
	}
	r.stopParent = context.AfterFunc(parent, func() { r.Cancel() })
	return r
}

// ID returns the request id.
func (r *Request) ID() string {
	return r.id
}

// StartTime returns when the request was created.
func (r *Request) StartTime() time.Time {
	return r.start
}

// Attempt issues the context for the next attempt together with the func
// that releases it. Contexts issued after Cancel are already done.
func (r *Request) Attempt() (context.Context, context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts++
	n := r.attempts
	ctx, cancel := context.WithCancel(r.parent)
	if r.cancelled {
		cancel()
		return ctx, cancel
	}

	r.active = cancel
	r.activeN = n
	return ctx, func() {
		cancel()
		r.mu.Lock()
		if r.activeN == n {
			r.active = nil
		}
		r.mu.Unlock()
	}
}

// Attempts returns how many attempt contexts have been issued.
func (r *Request) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Cancel aborts the active attempt and all later ones. It reports whether
// this call did the cancelling; further calls are no-ops.
func (r *Request) Cancel() bool {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return false
	}
	r.cancelled = true
	close(r.done)
	active := r.active
	r.active = nil
	r.mu.Unlock()

	if active != nil {
		active()
	}
	return true
}

// IsCancelled reports whether the request has been cancelled, either by
// Cancel or through its parent context.
func (r *Request) IsCancelled() bool {
	r.mu.Lock()
	cancelled, closed := r.cancelled, r.closed
	r.mu.Unlock()
	if cancelled {
		return true
	}
	// The parent's AfterFunc runs on its own goroutine; do not wait for it.
	if !closed && r.parent.Err() != nil {
		r.Cancel()
		return true
	}
	return false
}

// Done is closed on cancellation.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Close detaches the request from its parent context and releases the active
// attempt. It does not mark the request cancelled.
func (r *Request) Close() {
	if r.stopParent != nil {
		r.stopParent()
	}
	r.mu.Lock()
	r.closed = true
	active := r.active
	r.active = nil
	r.mu.Unlock()
	if active != nil {
		active()
	}
}
