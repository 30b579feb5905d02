// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"strings"
)

var (
	filenameLineRe  = regexp.MustCompile(`(?m)^FILENAME:.*$`)
	checkboxRe      = regexp.MustCompile(`(?m)^[*-]\s*\[[ xX]\]\s*(.*)$`)
	mdLinkRe        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	boldStarRe      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	boldUnderRe     = regexp.MustCompile(`__(.*?)__`)
	italicStarRe    = regexp.MustCompile(`\*(.*?)\*`)
	italicUnderRe   = regexp.MustCompile(`_(.*?)_`)
	wikiBracketRe   = regexp.MustCompile(`\[\[|\]\]`)
	leadingBlanksRe = regexp.MustCompile(`^(?:[ \t\r]*\n)+`)
)

// PlainText strips markdown for copying: FILENAME lines go, checkboxes
// become dashes, links keep their text, emphasis markers are removed.
func PlainText(md string) string {
	text := filenameLineRe.ReplaceAllString(md, "")
	text = checkboxRe.ReplaceAllString(text, "- $1")
	text = ReplaceWikilinks(text, func(t string) string { return t })
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = boldStarRe.ReplaceAllString(text, "$1")
	text = boldUnderRe.ReplaceAllString(text, "$1")
	text = italicStarRe.ReplaceAllString(text, "$1")
	text = italicUnderRe.ReplaceAllString(text, "$1")
	text = wikiBracketRe.ReplaceAllString(text, "")
	text = leadingBlanksRe.ReplaceAllString(text, "")
	return text
}

// Plain is PlainText as a Renderer.
var Plain Renderer = Func(PlainText)

// TrimForPreview collapses whitespace so text fits on one line.
func TrimForPreview(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
