// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sync"
)

// =============================================================================
// EVENTS
// =============================================================================

// Event is something the UI has to show. Every event names the request it
// belongs to.
type Event interface {
	RequestID() string
}

// UserTurn is emitted before any network activity for a submission.
type UserTurn struct {
	ID   string
	Text string
}

// ContentDelta carries the full text accumulated by the current attempt.
// Markup is Text passed through the configured renderer.
type ContentDelta struct {
	ID      string
	Attempt int
	Text    string
	Markup  string
}

// RetryNotice is emitted after a failed attempt that will be retried.
type RetryNotice struct {
	ID          string
	Attempt     int
	MaxAttempts int
	Message     string
}

// Busy toggles the in-progress indicator of a request.
type Busy struct {
	ID     string
	Active bool
}

// Terminal is the last event of a request. Exactly one is emitted per
// submission.
type Terminal struct {
	ID      string
	Outcome Outcome
}

func (e UserTurn) RequestID() string     { return e.ID }
func (e ContentDelta) RequestID() string { return e.ID }
func (e RetryNotice) RequestID() string  { return e.ID }
func (e Busy) RequestID() string         { return e.ID }
func (e Terminal) RequestID() string     { return e.ID }

// =============================================================================
// OUTCOME
// =============================================================================

// OutcomeKind classifies how a submission ended.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// CancelledMessage is shown for a cancelled request.
const CancelledMessage = "Request cancelled"

// Outcome is the result of a submission.
type Outcome struct {
	Kind OutcomeKind
	// Text is the final answer on success.
	Text string
	// Markup is Text rendered.
	Markup string
	// Err is the last error on failure.
	Err      error
	Attempts int
}

// Message is the text a UI shows for the outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeSuccess:
		return o.Text
	case OutcomeCancelled:
		return CancelledMessage
	default:
		if o.Err == nil {
			return "Error: unknown error"
		}
		return "Error: " + o.Err.Error()
	}
}

// =============================================================================
// SINK
// =============================================================================

// Sink receives events. Emit is called from the submitting goroutine; a UI
// with its own loop must hand events over rather than block.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

// Emit calls f.
func (f SinkFunc) Emit(e Event) { f(e) }

// DiscardSink drops every event.
var DiscardSink Sink = SinkFunc(func(Event) {})

// Recorder is a Sink that keeps every event. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// For returns the recorded events of one request.
func (r *Recorder) For(requestID string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.RequestID() == requestID {
			out = append(out, e)
		}
	}
	return out
}
