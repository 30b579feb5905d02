// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the lifetime of chat submissions and the
// conversation they belong to.
//
// # Key Types
//
//   - Request: cancellation authority for one submission. Hands out a fresh
//     context per attempt; Cancel aborts whichever attempt is active and
//     every later one.
//   - Registry: in-flight requests by id, so a UI can cancel a submission
//     it only knows by id.
//   - Conversation: the server-side session id plus the last prompt and
//     pattern. Replaces process-wide globals.
//
// # Usage
//
//	req := session.NewRequest(ctx)
//	registry.Register(req)
//	defer registry.Release(req.ID())
//
//	attemptCtx, done := req.Attempt()
//	defer done()
//
// From the UI:
//
//	registry.Cancel(requestID)
package session
