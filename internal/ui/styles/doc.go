// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the fabric-ui chat views.
// Colors are Lip Gloss AdaptiveColors so light and dark terminals both work;
// colour output follows NO_COLOR, FORCE_COLOR and TTY detection.
//
// # Usage
//
//	theme := styles.NewTheme()
//	theme.SetSize(width, height)
//	line := theme.UserLabel.Render("You") + "\n" + theme.UserText.Render(text)
package styles
