// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorsEnabled reports whether stdout should receive colour. NO_COLOR
// (https://no-color.org/) wins over FORCE_COLOR, which wins over TTY
// detection.
func ColorsEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ColorProfile returns the termenv profile for stdout, Ascii when colours
// are disabled.
func ColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// ApplyColorProfile configures the default lipgloss renderer from
// ColorProfile.
func ApplyColorProfile() {
	lipgloss.SetColorProfile(ColorProfile())
}
