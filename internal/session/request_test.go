// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		if !strings.HasPrefix(id, "req_") {
			t.Fatalf("Expected req_ prefix, got %q", id)
		}
		if seen[id] {
			t.Fatalf("Duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestRequest_CancelIsIdempotent(t *testing.T) {
	r := NewRequest(context.Background())
	assert.False(t, r.IsCancelled())

	assert.True(t, r.Cancel())
	assert.False(t, r.Cancel())
	assert.True(t, r.IsCancelled())

	select {
	case <-r.Done():
	default:
		t.Error("Done channel should be closed after Cancel")
	}
}

func TestRequest_CancelAbortsActiveAttempt(t *testing.T) {
	r := NewRequest(context.Background())
	ctx, release := r.Attempt()
	defer release()

	require.NoError(t, ctx.Err())
	r.Cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("attempt context was not cancelled")
	}
}

func TestRequest_AttemptAfterCancelIsDone(t *testing.T) {
	r := NewRequest(context.Background())
	r.Cancel()

	ctx, release := r.Attempt()
	defer release()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestRequest_AttemptsAreIndependent(t *testing.T) {
	r := NewRequest(context.Background())

	first, releaseFirst := r.Attempt()
	releaseFirst()
	assert.Error(t, first.Err(), "released attempt should be done")

	second, releaseSecond := r.Attempt()
	defer releaseSecond()
	assert.NoError(t, second.Err(), "new attempt should start live")
	assert.False(t, r.IsCancelled())
	assert.Equal(t, 2, r.Attempts())
}

func TestRequest_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	r := NewRequest(parent)
	defer r.Close()

	cancel()

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("request not cancelled with parent")
	}
	assert.True(t, r.IsCancelled())
}

func TestRequest_CloseDoesNotCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	r := NewRequest(parent)
	r.Close()
	cancel()

	// AfterFunc is stopped, so the parent no longer reaches the request.
	time.Sleep(10 * time.Millisecond)
	assert.False(t, r.IsCancelled())
}

func TestRequest_ConcurrentCancel(t *testing.T) {
	r := NewRequest(context.Background())
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Cancel() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRegistry(t *testing.T) {
	g := NewRegistry()
	a := NewRequest(context.Background())
	b := NewRequest(context.Background())
	g.Register(a)
	g.Register(b)
	assert.Equal(t, 2, g.Len())
	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, g.IDs())

	assert.True(t, g.Cancel(a.ID()))
	assert.True(t, a.IsCancelled())
	assert.False(t, b.IsCancelled(), "cancelling one request must not touch another")

	g.Release(b.ID())
	assert.False(t, g.Cancel(b.ID()), "released ids are unknown")
	assert.False(t, b.IsCancelled())
	assert.False(t, g.Cancel("req_missing"))
}

func TestRegistry_CancelAll(t *testing.T) {
	g := NewRegistry()
	reqs := []*Request{
		NewRequest(context.Background()),
		NewRequest(context.Background()),
		NewRequest(context.Background()),
	}
	for _, r := range reqs {
		g.Register(r)
	}
	reqs[0].Cancel()

	assert.Equal(t, 2, g.CancelAll())
	for _, r := range reqs {
		assert.True(t, r.IsCancelled())
	}
}
