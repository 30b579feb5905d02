// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs chat submissions against a fabric backend and reports
// their progress to a UI through a Sink.
//
// # Event order
//
// For every submission the sink sees:
//
//	UserTurn, Busy{Active: true},
//	(ContentDelta | RetryNotice)*,
//	Busy{Active: false}, Terminal
//
// ContentDelta always carries the complete text of its attempt. When the
// Attempt number changes, the previous attempt's text is stale.
//
// # Usage
//
//	orch := chat.NewOrchestrator(fabric.NewClient(baseURL), sink).
//	    WithRenderer(renderer).
//	    WithLogger(logger)
//
//	go orch.Submit(ctx, chat.Submission{Input: text, Selection: sel})
//
//	// later, from the UI
//	orch.Cancel(requestID)
package chat
