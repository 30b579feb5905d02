// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the fabric-ui command line.
//
// # Commands
//
//   - chat: full-screen chat (also the default without a command)
//   - repl: line-oriented chat with history
//   - ask: one prompt, answer on stdout
//   - patterns, models, files: list what the server offers
//   - config: show, get, set, path and init
//
// Every command reads the configuration first; --config, --base-url,
// --debug and --metrics-addr override it for the run.
package cli
