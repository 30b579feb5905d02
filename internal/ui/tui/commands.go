// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/fritzduchardt/fabric-ui/internal/chat"
	"github.com/fritzduchardt/fabric-ui/internal/render"
	"github.com/fritzduchardt/fabric-ui/internal/util"
)

// runCommand executes a slash command typed into the input.
func (m Model) runCommand(cmd chat.Command) (tea.Model, tea.Cmd) {
	switch cmd.Name {
	case chat.CmdPattern, chat.CmdModel, chat.CmdFile:
		choices, _ := m.options.ChoicesFor(cmd.Name)
		if cmd.Arg == "" {
			m.picker = picker{command: cmd.Name, choices: choices}
			return m, nil
		}
		if cmd.Name == chat.CmdFile && strings.EqualFold(cmd.Arg, "none") {
			m.selection = m.selection.Apply(cmd.Name, cmd.Arg)
			return m, nil
		}
		value, ok := choices.Match(cmd.Arg)
		if !ok {
			m.appendEntry(entry{kind: entryError, text: fmt.Sprintf("No %s matches %q", cmd.Name, cmd.Arg)})
			return m, nil
		}
		m.selection = m.selection.Apply(cmd.Name, value)
		return m, nil

	case chat.CmdContinue:
		if cmd.Arg == "" {
			m.continueNext = true
			m.appendEntry(entry{kind: entryInfo, text: "The next message continues the current session."})
			return m, nil
		}
		if m.busy {
			m.appendEntry(entry{kind: entryInfo, text: "A request is in flight. Press Esc to cancel it."})
			return m, nil
		}
		m.continueNext = false
		m.busy = true
		return m, m.submit(chat.Submission{Input: cmd.Arg, Selection: m.selection, Continue: true})

	case chat.CmdClear:
		if m.busy {
			m.cancelInFlight()
		}
		m.entries = nil
		m.lastAnswer = ""
		m.continueNext = false
		m.orch.Conversation().Reset()
		m.refresh()
		return m, nil

	case chat.CmdCopy:
		m.copyLastAnswer(cmd.Arg)
		return m, nil

	case chat.CmdHelp:
		var sb strings.Builder
		sb.WriteString("Commands:")
		for _, h := range chat.CommandHelp {
			sb.WriteString("\n  " + util.PadRight(h[0], 20) + h[1])
		}
		sb.WriteString("\nKeys: Enter send, Alt+Enter new line, Esc cancel, Ctrl+C cancel or quit, Ctrl+D quit")
		m.appendEntry(entry{kind: entryInfo, text: sb.String()})
		return m, nil

	case chat.CmdQuit:
		m.orch.CancelAll()
		return m, tea.Quit
	}

	m.appendEntry(entry{kind: entryError, text: fmt.Sprintf("Unknown command /%s, try /help", cmd.Name)})
	return m, nil
}

// copyLastAnswer writes the plain text of the last answer to path, or to
// the configured copy path.
func (m *Model) copyLastAnswer(path string) {
	if m.lastAnswer == "" {
		m.appendEntry(entry{kind: entryInfo, text: "Nothing to copy yet."})
		return
	}
	if path == "" {
		path = m.copyPath
	}
	if path == "" {
		m.appendEntry(entry{kind: entryError, text: "No copy path configured, use /copy <path>"})
		return
	}
	if err := util.AtomicWriteFile(path, []byte(render.PlainText(m.lastAnswer)), 0600); err != nil {
		m.logger.Warn("copy failed", zap.String("path", path), zap.Error(err))
		m.appendEntry(entry{kind: entryError, text: "Copy failed: " + err.Error()})
		return
	}
	m.appendEntry(entry{kind: entryInfo, text: "Copied the last answer to " + path})
}
