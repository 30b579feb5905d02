// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "sync"

// Registry holds the requests that are still in flight. The UI refers to a
// request only by id; once released, the id is unknown and cancelling it does
// nothing.
type Registry struct {
	mu       sync.Mutex
	requests map[string]*Request
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{requests: make(map[string]*Request)}
}

// Register adds req.
func (g *Registry) Register(req *Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests[req.ID()] = req
}

// Release forgets the request with the given id.
func (g *Registry) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.requests, id)
}

// Cancel cancels the request with the given id. It returns false when the id
// is unknown or the request was already cancelled.
func (g *Registry) Cancel(id string) bool {
	g.mu.Lock()
	req, ok := g.requests[id]
	g.mu.Unlock()
	if !ok {
		return false
	}
	return req.Cancel()
}

// CancelAll cancels every in-flight request and returns how many were
// cancelled by this call.
func (g *Registry) CancelAll() int {
	g.mu.Lock()
	reqs := make([]*Request, 0, len(g.requests))
	for _, r := range g.requests {
		reqs = append(reqs, r)
	}
	g.mu.Unlock()

	n := 0
	for _, r := range reqs {
		if r.Cancel() {
			n++
		}
	}
	return n
}

// Len returns the number of in-flight requests.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// IDs returns the ids of the in-flight requests.
func (g *Registry) IDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.requests))
	for id := range g.requests {
		ids = append(ids, id)
	}
	return ids
}
