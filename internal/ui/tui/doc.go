// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is the full-screen chat interface.
//
// The Model owns the transcript, the input and the pattern, model and file
// selection. Submissions run on the chat orchestrator outside the Bubble
// Tea loop; their events come back through a Sink attached to the
// program, which coalesces content deltas so fast streams do not flood the
// renderer.
package tui
