// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// DefaultWordWrap is used when no width is known.
const DefaultWordWrap = 80

// Terminal renders markdown with glamour for ANSI terminals.
type Terminal struct {
	mu sync.Mutex
	r  *glamour.TermRenderer
}

// NewTerminal creates a terminal renderer. style is a glamour standard style
// ("dark", "light", "notty") or "auto".
func NewTerminal(style string, wordWrap int) (*Terminal, error) {
	if wordWrap <= 0 {
		wordWrap = DefaultWordWrap
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStandardStyle(style)
	}

	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wordWrap))
	if err != nil {
		return nil, err
	}
	return &Terminal{r: r}, nil
}

// Render implements Renderer. Rendering errors fall back to the prepared
// markdown.
func (t *Terminal) Render(markdown string) string {
	md := PrepareTerminal(markdown)

	t.mu.Lock()
	defer t.mu.Unlock()
	out, err := t.r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// PrepareTerminal rewrites Obsidian constructs into plain markdown:
// FILENAME lines become headings separated by rules and wikilinks become
// bold italic.
func PrepareTerminal(markdown string) string {
	preamble, sections := SplitSections(markdown)

	var sb strings.Builder
	if len(sections) == 0 {
		sb.WriteString(markdown)
	} else {
		sb.WriteString(preamble)
		for i, s := range sections {
			if i > 0 || strings.TrimSpace(preamble) != "" {
				sb.WriteString("\n---\n\n")
			}
			sb.WriteString("### FILENAME: ")
			sb.WriteString(s.Filename)
			sb.WriteString("\n\n")
			sb.WriteString(s.Content)
		}
	}

	return ReplaceWikilinks(sb.String(), func(text string) string {
		return "***" + text + "***"
	})
}
