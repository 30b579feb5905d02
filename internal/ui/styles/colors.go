// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple - assistant answers, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - brand, user turns, prompts
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - success
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - retry notices, cancellation
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE AND TEXT
// =============================================================================

var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// SelectionBg highlights the active entry of a picker.
var SelectionBg = lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#1E3A5F"}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet holds ASCII markers shown next to coloured status text,
// so the state reads without colour.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Pending string
}

// StatusIndicators are the markers used by the Render helpers.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[ ]",
}

// RenderSuccess renders message with the success marker.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Emerald).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders message with the error marker.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders message with the warning marker.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders message with the info marker.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Cyan).
		Render(StatusIndicators.Info + " " + message)
}
