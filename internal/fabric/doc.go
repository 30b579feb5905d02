// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fabric is the HTTP client for the fabric REST backend.
//
// # Endpoints
//
//   - POST /chat: streamed chat completion (text/event-stream)
//   - GET /patterns/names: available patterns
//   - GET /models/names: available models
//   - GET /obsidian/files: notes that can be attached as context
//
// # Usage
//
//	client := fabric.NewClient("https://fabric.example.org/api").
//	    WithLogger(logger)
//
//	body, err := client.ChatStream(ctx, req)
//	if err != nil {
//	    return err // *HTTPStatusError or *NetworkError
//	}
//	defer body.Close()
//
// The client does not retry. Retrying is the caller's decision.
package fabric
