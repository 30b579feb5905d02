// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/fritzduchardt/fabric-ui/internal/chat"
)

// DefaultMaxFPS caps how often content deltas repaint the transcript.
const DefaultMaxFPS = 30

// EventMsg carries an orchestrator event into the Bubble Tea loop.
type EventMsg struct {
	Event chat.Event
}

// =============================================================================
// PROGRAM SINK
// =============================================================================

// Sink forwards orchestrator events to a Bubble Tea program.
//
// Content deltas are rate limited. A delta carries the whole text so far,
// so deltas arriving faster than the limit are coalesced to the latest one
// per request and delivered by a timer. Any other event of a request first
// delivers that request's pending delta. Delivery happens under the sink's
// lock, so the program sees each request's events in emission order.
type Sink struct {
	mu       sync.Mutex
	send     func(tea.Msg)
	limiter  *rate.Limiter
	interval time.Duration
	pending  map[string]chat.ContentDelta
	timer    *time.Timer
}

// NewSink creates a sink repainting at most maxFPS times per second.
func NewSink(maxFPS int) *Sink {
	if maxFPS <= 0 {
		maxFPS = DefaultMaxFPS
	}
	interval := time.Second / time.Duration(maxFPS)
	return &Sink{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
		pending:  make(map[string]chat.ContentDelta),
	}
}

// Attach sets the delivery function, normally (*tea.Program).Send. Events
// emitted before Attach are dropped. The function must not call back into
// the sink.
func (s *Sink) Attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

// Emit implements chat.Sink.
func (s *Sink) Emit(e chat.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.send == nil {
		return
	}

	d, isDelta := e.(chat.ContentDelta)
	if !isDelta {
		if prev, ok := s.pending[e.RequestID()]; ok {
			delete(s.pending, e.RequestID())
			s.send(EventMsg{Event: prev})
		}
		s.send(EventMsg{Event: e})
		return
	}

	if s.limiter.Allow() {
		delete(s.pending, d.ID)
		s.send(EventMsg{Event: d})
		return
	}

	s.pending[d.ID] = d
	if s.timer == nil {
		s.timer = time.AfterFunc(s.interval, s.flush)
	}
}

// flush delivers every coalesced delta.
func (s *Sink) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = nil
	for id, d := range s.pending {
		delete(s.pending, id)
		s.send(EventMsg{Event: d})
	}
}
