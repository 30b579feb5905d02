// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fritzduchardt/fabric-ui/internal/util"
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is the state shared by consecutive submissions: the
// server-side session id and what was last asked.
//
// A new session becomes current only when a submission in it succeeds, so a
// failed turn never replaces the session that /continue resumes.
type Conversation struct {
	mu sync.Mutex

	sessionID string
	// minted holds new session ids handed out and not yet recorded or
	// discarded.
	minted map[string]struct{}

	startTime    time.Time
	lastActivity time.Time

	lastPrompt  string
	lastPattern string
	turns       int
}

// NewConversation creates a conversation without a session. The first
// submission mints one.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		minted:       make(map[string]struct{}),
		startTime:    now,
		lastActivity: now,
	}
}

// generateSessionID creates a unique session id.
func generateSessionID() string {
	return uuid.NewString()
}

// SessionFor returns the session id for the next submission. Continuing
// reuses the current session; otherwise, or with no session yet, a new id is
// minted. A minted id becomes current on its first Record.
func (c *Conversation) SessionFor(continueSession bool) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastActivity = time.Now()
	if continueSession && c.sessionID != "" {
		return c.sessionID
	}
	id := generateSessionID()
	c.minted[id] = struct{}{}
	return id
}

// Rotate mints a new session id for a retry.
func (c *Conversation) Rotate() string {
	return c.SessionFor(false)
}

// Discard forgets a minted id whose submission did not succeed. The current
// session is unaffected.
func (c *Conversation) Discard(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.minted, sessionID)
}

// Record stores a successful submission and makes its session current.
// Records for ids that are neither current nor minted since the last Reset
// are ignored.
func (c *Conversation) Record(sessionID, prompt, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if sessionID != c.sessionID {
		if _, ok := c.minted[sessionID]; !ok {
			return
		}
		delete(c.minted, sessionID)
		c.sessionID = sessionID
		c.startTime = now
		c.turns = 0
	}
	c.lastPrompt = prompt
	c.lastPattern = pattern
	c.lastActivity = now
	c.turns++
}

// SessionID returns the current session id, empty before the first
// successful submission.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// LastPrompt returns the prompt of the last recorded submission.
func (c *Conversation) LastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPrompt
}

// LastPattern returns the pattern of the last recorded submission.
func (c *Conversation) LastPattern() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPattern
}

// Reset drops the session and everything recorded for it.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.sessionID = ""
	clear(c.minted)
	c.lastPrompt = ""
	c.lastPattern = ""
	c.turns = 0
	c.startTime = now
	c.lastActivity = now
}

// =============================================================================
// CONVERSATION STATUS
// =============================================================================

// Status is a snapshot of the conversation.
type Status struct {
	SessionID   string
	StartTime   time.Time
	Duration    time.Duration
	IdleTime    time.Duration
	Turns       int
	LastPattern string
}

// GetStatus returns the current conversation status.
func (c *Conversation) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	return Status{
		SessionID:   c.sessionID,
		StartTime:   c.startTime,
		Duration:    now.Sub(c.startTime),
		IdleTime:    now.Sub(c.lastActivity),
		Turns:       c.turns,
		LastPattern: c.lastPattern,
	}
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		secs := int(d.Seconds())
		return util.IntToString(secs) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return util.IntToString(mins) + "m"
	}
	return util.IntToString(mins) + "m " + util.IntToString(secs) + "s"
}
