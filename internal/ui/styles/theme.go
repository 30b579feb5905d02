// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles of the chat views.
type Theme struct {
	ColorProfile termenv.Profile
	IsDark       bool

	Width  int
	Height int

	// Transcript
	UserLabel      lipgloss.Style
	UserText       lipgloss.Style
	AssistantLabel lipgloss.Style
	AssistantText  lipgloss.Style
	RetryNotice    lipgloss.Style
	Cancelled      lipgloss.Style
	Error          lipgloss.Style

	// Input and status
	InputPrompt lipgloss.Style
	Placeholder lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style
	Spinner     lipgloss.Style
	Hint        lipgloss.Style

	// Pickers
	PickerTitle    lipgloss.Style
	PickerItem     lipgloss.Style
	PickerSelected lipgloss.Style
}

// NewTheme creates a theme for the detected terminal.
func NewTheme() *Theme {
	profile := ColorProfile()
	t := &Theme{
		ColorProfile: profile,
		IsDark:       termenv.HasDarkBackground(),
	}
	t.initStyles()
	return t
}

// NewThemeForProfile creates a theme for a fixed profile, e.g. termenv.Ascii
// in tests.
func NewThemeForProfile(profile termenv.Profile) *Theme {
	t := &Theme{ColorProfile: profile, IsDark: true}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	r := lipgloss.NewRenderer(os.Stdout)
	r.SetColorProfile(t.ColorProfile)
	r.SetHasDarkBackground(t.IsDark)
	style := r.NewStyle

	t.UserLabel = style().Bold(true).Foreground(Cyan)
	t.UserText = style().Foreground(TextPrimary).PaddingLeft(2)
	t.AssistantLabel = style().Bold(true).Foreground(Purple)
	t.AssistantText = style().Foreground(TextPrimary).PaddingLeft(2)
	t.RetryNotice = style().Foreground(Amber).Italic(true).PaddingLeft(2)
	t.Cancelled = style().Foreground(Amber).PaddingLeft(2)
	t.Error = style().Foreground(Rose).Bold(true).PaddingLeft(2)

	t.InputPrompt = style().Bold(true).Foreground(Cyan)
	t.Placeholder = style().Foreground(TextMuted)
	t.StatusBar = style().Foreground(TextSecondary).Background(SurfaceDim).Padding(0, 1)
	t.StatusKey = style().Foreground(TextMuted)
	t.StatusValue = style().Foreground(TextPrimary).Bold(true)
	t.Spinner = style().Foreground(Purple)
	t.Hint = style().Foreground(TextMuted).Italic(true)

	t.PickerTitle = style().Bold(true).Foreground(Purple).MarginBottom(1)
	t.PickerItem = style().Foreground(TextSecondary).PaddingLeft(2)
	t.PickerSelected = style().Foreground(TextPrimary).Background(SelectionBg).Bold(true).PaddingLeft(2)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// ContentWidth is the width available to transcript text.
func (t *Theme) ContentWidth() int {
	w := t.Width - 4
	if w < 20 {
		return 20
	}
	return w
}
