// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream accumulates the deltas of one response attempt and drives
// re-rendering of the partial answer.
package stream

import (
	"errors"
	"strings"
	"time"
)

// NoResponseMessage replaces the text of an attempt that produced nothing.
const NoResponseMessage = "no response from server"

// ErrEmptyResponse is returned for an attempt that finished without content.
// It is retryable.
var ErrEmptyResponse = errors.New("empty response from server")

// emptyResults are texts the backend is known to produce in place of an
// answer.
var emptyResults = map[string]struct{}{
	"null":      {},
	"undefined": {},
}

// IsEmptyResult reports whether text counts as no answer at all.
func IsEmptyResult(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	_, ok := emptyResults[t]
	return ok
}

// =============================================================================
// BUFFER
// =============================================================================

// Buffer is the text of a single attempt. It is never shared between
// attempts.
type Buffer struct {
	text         strings.Builder
	IsTerminal   bool
	IsErrorState bool
}

// Text returns the accumulated text.
func (b *Buffer) Text() string {
	return b.text.String()
}

// Len returns the accumulated length in bytes.
func (b *Buffer) Len() int {
	return b.text.Len()
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// RenderFunc receives the full accumulated text after every delta.
type RenderFunc func(text string)

// Stats are timing figures for one attempt.
type Stats struct {
	FirstDeltaTime time.Duration
	TotalTime      time.Duration
	Deltas         int
}

// Accumulator owns the Buffer of one attempt. Deltas are appended in arrival
// order and every append re-renders the whole text, so the render target is
// replaced rather than patched.
type Accumulator struct {
	buf    Buffer
	render RenderFunc

	// KeepScrolledToEnd is called after every render.
	KeepScrolledToEnd func()

	start      time.Time
	firstDelta time.Time
	finished   time.Time
	deltas     int
}

// NewAccumulator creates an accumulator for a fresh attempt. render may be
// nil.
func NewAccumulator(render RenderFunc) *Accumulator {
	return &Accumulator{
		render: render,
		start:  time.Now(),
	}
}

// Append adds a delta and re-renders. Appends after Finalize are ignored.
func (a *Accumulator) Append(delta string) {
	if a.buf.IsTerminal {
		return
	}
	if a.firstDelta.IsZero() {
		a.firstDelta = time.Now()
	}
	a.deltas++
	a.buf.text.WriteString(delta)

	if a.render != nil {
		a.render(a.buf.text.String())
	}
	if a.KeepScrolledToEnd != nil {
		a.KeepScrolledToEnd()
	}
}

// Finalize marks the buffer terminal. When nothing usable arrived the buffer
// enters the error state, its text becomes NoResponseMessage and ok is false.
func (a *Accumulator) Finalize() (text string, ok bool) {
	if !a.buf.IsTerminal {
		a.buf.IsTerminal = true
		a.finished = time.Now()
		if IsEmptyResult(a.buf.text.String()) {
			a.buf.IsErrorState = true
			a.buf.text.Reset()
			a.buf.text.WriteString(NoResponseMessage)
		}
	}
	return a.buf.text.String(), !a.buf.IsErrorState
}

// Buffer returns the attempt's buffer.
func (a *Accumulator) Buffer() *Buffer {
	return &a.buf
}

// Text returns the accumulated text.
func (a *Accumulator) Text() string {
	return a.buf.text.String()
}

// Stats returns timing figures collected so far.
func (a *Accumulator) Stats() Stats {
	end := a.finished
	if end.IsZero() {
		end = time.Now()
	}
	var ttfd time.Duration
	if !a.firstDelta.IsZero() {
		ttfd = a.firstDelta.Sub(a.start)
	}
	return Stats{
		FirstDeltaTime: ttfd,
		TotalTime:      end.Sub(a.start),
		Deltas:         a.deltas,
	}
}
