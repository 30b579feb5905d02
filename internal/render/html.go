// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// HTML renders markdown to sanitised HTML. FILENAME sections become
// collapsible blocks, the first one open, and wikilinks become bold italic
// text.
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewHTML creates an HTML renderer.
func NewHTML() *HTML {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowElements("details", "summary")
	policy.AllowAttrs("open").OnElements("details")
	policy.AllowAttrs("class").OnElements("details", "summary", "div")

	return &HTML{md: md, policy: policy}
}

// Render implements Renderer.
func (h *HTML) Render(markdown string) string {
	preamble, sections := SplitSections(markdown)

	var out strings.Builder
	if len(sections) == 0 {
		out.WriteString(h.convert(markdown))
	} else {
		if strings.TrimSpace(preamble) != "" {
			out.WriteString(h.convert(preamble))
		}
		for i, s := range sections {
			open := ""
			if i == 0 {
				open = " open"
			}
			fmt.Fprintf(&out,
				"<details class=\"file-section\"%s><summary class=\"filename-info\">FILENAME: %s</summary><div class=\"file-content\">%s</div></details>\n",
				open, html.EscapeString(s.Filename), h.convert(s.Content))
		}
	}

	result := ReplaceWikilinks(out.String(), func(text string) string {
		return "<i><b>" + text + "</b></i>"
	})
	return h.policy.Sanitize(result)
}

// convert runs goldmark, falling back to line breaks on error.
func (h *HTML) convert(md string) string {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(md), &buf); err != nil {
		return strings.ReplaceAll(html.EscapeString(md), "\n", "<br>")
	}
	return buf.String()
}
