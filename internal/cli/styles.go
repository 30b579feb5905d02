// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fritzduchardt/fabric-ui/internal/ui/styles"
)

// =============================================================================
// SHARED STYLES FOR ALL CLI COMMANDS
// =============================================================================

var (
	// TitleStyle is used for list and section headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// LabelStyle is used for keys in key/value output
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	// ValueStyle is used for regular values
	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// DimStyle is used for hints and secondary information
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// CurrentStyle marks the active entry of a list
	CurrentStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)
)
