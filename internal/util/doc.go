// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the fabric-ui packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, PadRight, StringWidth: terminal column aware layout
//
// Type Conversion:
//   - IntToString, FloatToString
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	// Keep log fields short
//	preview := util.TruncateRunes(prompt, 80)
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0600)
package util
