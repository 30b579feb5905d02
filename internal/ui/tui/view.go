// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fritzduchardt/fabric-ui/internal/chat"
	"github.com/fritzduchardt/fabric-ui/internal/util"
)

// maxPickerRows limits the visible picker entries.
const maxPickerRows = 12

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	body := m.viewport.View()
	if m.picker.open() {
		body = m.renderPicker()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.renderStatus(),
		m.input.View(),
	)
}

func (m Model) renderTranscript() string {
	t := m.theme
	wrap := lipgloss.NewStyle().Width(t.ContentWidth())

	var sb strings.Builder
	for i, en := range m.entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch en.kind {
		case entryUser:
			sb.WriteString(t.UserLabel.Render("You") + "\n")
			sb.WriteString(t.UserText.Render(wrap.Render(en.text)) + "\n")
		case entryAssistant:
			sb.WriteString(t.AssistantLabel.Render("fabric") + "\n")
			if en.markup != "" && en.markup != en.text {
				sb.WriteString(strings.TrimRight(en.markup, "\n") + "\n")
			} else {
				sb.WriteString(t.AssistantText.Render(wrap.Render(en.text)) + "\n")
			}
		case entryNotice:
			sb.WriteString(t.RetryNotice.Render(wrap.Render(en.text)) + "\n")
		case entryCancelled:
			sb.WriteString(t.Cancelled.Render(en.text) + "\n")
		case entryError:
			sb.WriteString(t.Error.Render(wrap.Render(en.text)) + "\n")
		case entryInfo:
			sb.WriteString(t.Hint.Render(en.text) + "\n")
		}
	}
	return sb.String()
}

func (m Model) renderStatus() string {
	t := m.theme
	field := func(k, v string) string {
		return t.StatusKey.Render(k+" ") + t.StatusValue.Render(util.TruncateWidth(v, 28))
	}

	file := m.selection.ContextFile
	if file == "" {
		file = chat.NoFile
	}
	parts := []string{
		field("pattern", m.selection.Pattern),
		field("model", m.selection.Model),
		field("file", file),
	}
	if m.continueNext {
		parts = append(parts, t.Hint.Render("continue"))
	}
	if m.busy {
		parts = append(parts, m.spinner.View()+t.Hint.Render("streaming (Esc cancels)"))
	}

	line := strings.Join(parts, "  ")
	width := m.width
	if width <= 0 {
		width = 80
	}
	return t.StatusBar.Width(width).MaxWidth(width).MaxHeight(1).Render(line)
}

func (m Model) renderPicker() string {
	t := m.theme
	items := m.picker.items()

	var sb strings.Builder
	sb.WriteString(t.PickerTitle.Render("Select "+m.picker.command+": "+m.picker.query+"_") + "\n")
	if len(items) == 0 {
		sb.WriteString(t.Hint.Render("  no match"))
		return lipgloss.NewStyle().Height(m.viewport.Height).Render(sb.String())
	}

	start := 0
	if m.picker.index >= maxPickerRows {
		start = m.picker.index - maxPickerRows + 1
	}
	end := min(len(items), start+maxPickerRows)
	for i := start; i < end; i++ {
		label := util.TruncateWidth(items[i], t.ContentWidth())
		if items[i] == m.picker.choices.Default {
			label += " (default)"
		}
		if i == m.picker.index {
			sb.WriteString(t.PickerSelected.Render("> "+label) + "\n")
		} else {
			sb.WriteString(t.PickerItem.Render("  "+label) + "\n")
		}
	}
	return lipgloss.NewStyle().Height(m.viewport.Height).Render(sb.String())
}
