// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render converts accumulated markdown into display forms: sanitised
// HTML, styled terminal output, and plain text for copying.
//
// All renderers are pure: the same markdown always yields the same output,
// and a partial document renders as well as a complete one.
package render

import (
	"regexp"
	"strings"
)

// Renderer turns markdown into a display form.
type Renderer interface {
	Render(markdown string) string
}

// Func adapts an ordinary function to Renderer.
type Func func(markdown string) string

// Render calls f.
func (f Func) Render(markdown string) string { return f(markdown) }

// Identity returns markdown unchanged.
var Identity Renderer = Func(func(md string) string { return md })

// =============================================================================
// OBSIDIAN MARKDOWN
// =============================================================================

// FilenamePrefix starts a line naming the note the following content belongs
// to.
const FilenamePrefix = "FILENAME: "

var wikilinkRe = regexp.MustCompile(`\[\[([^|\]]+)\|?([^\]]*)\]\]`)

// Section is the content that follows one FILENAME line.
type Section struct {
	Filename string
	Content  string
}

// SplitSections splits md at lines starting with "FILENAME: ". Text before
// the first such line is returned as preamble. With no FILENAME lines,
// sections is empty and preamble is md.
func SplitSections(md string) (preamble string, sections []Section) {
	lines := strings.SplitAfter(md, "\n")
	var pre strings.Builder
	var cur *Section
	var body strings.Builder

	flush := func() {
		if cur != nil {
			cur.Content = body.String()
			sections = append(sections, *cur)
			body.Reset()
		}
	}

	for _, line := range lines {
		if strings.HasPrefix(line, FilenamePrefix) {
			flush()
			name := strings.TrimRight(strings.TrimPrefix(line, FilenamePrefix), "\r\n")
			cur = &Section{Filename: strings.TrimSpace(name)}
			continue
		}
		if cur == nil {
			pre.WriteString(line)
		} else {
			body.WriteString(line)
		}
	}
	flush()
	return pre.String(), sections
}

// ReplaceWikilinks rewrites [[Page]] and [[Page|alias]] using fn, which
// receives the alias when present and the page otherwise.
func ReplaceWikilinks(s string, fn func(text string) string) string {
	return wikilinkRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := wikilinkRe.FindStringSubmatch(m)
		text := sub[2]
		if text == "" {
			text = sub[1]
		}
		return fn(text)
	})
}
