// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strconv"

// IntToString converts an int to string.
func IntToString(i int) string {
	return strconv.Itoa(i)
}

// FloatToString converts a float64 to string with the fewest digits that
// represent it exactly, e.g. 0.7 or 1.
func FloatToString(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
