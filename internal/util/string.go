// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "github.com/mattn/go-runewidth"

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// TruncateRunes truncates a string to a maximum number of runes (characters).
// If the string is truncated, "..." is appended within the limit.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= len(Ellipsis) {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-len(Ellipsis)]) + Ellipsis
}

// TruncateWidth truncates a string to a maximum display width in terminal
// columns, counting wide (CJK, emoji) characters as two. The ellipsis is
// included in the width.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(Ellipsis) {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// PadRight pads s with spaces to width columns.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// StringWidth returns the display width of a string in terminal columns.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}
