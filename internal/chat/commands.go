// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "strings"

// Slash command names understood by the chat views.
const (
	CmdPattern  = "pattern"
	CmdModel    = "model"
	CmdFile     = "file"
	CmdContinue = "continue"
	CmdClear    = "clear"
	CmdCopy     = "copy"
	CmdHelp     = "help"
	CmdQuit     = "quit"
)

// CommandHelp lists the slash commands with a short description.
var CommandHelp = [][2]string{
	{"/pattern [name]", "select the pattern (filters when ambiguous)"},
	{"/model [name]", "select the model"},
	{"/file [name]", "select the obsidian context file, /file none for no file"},
	{"/continue [text]", "send text in the current session"},
	{"/clear", "clear the transcript and start a new session"},
	{"/copy [path]", "write the last answer as plain text"},
	{"/help", "show this help"},
	{"/quit", "leave"},
}

// Command is a parsed slash command.
type Command struct {
	Name string
	Arg  string
}

// ParseCommand parses "/name arg". Input not starting with a slash, or a
// lone slash, is not a command.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || len(line) == 1 {
		return Command{}, false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return Command{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}, true
}

// ChoicesFor returns the list a selection command picks from.
func (o Options) ChoicesFor(name string) (Choices, bool) {
	switch name {
	case CmdPattern:
		return o.Patterns, true
	case CmdModel:
		return o.Models, true
	case CmdFile:
		return o.Files, true
	}
	return Choices{}, false
}

// Apply sets the field of sel that the selection command name controls.
func (sel Selection) Apply(name, value string) Selection {
	switch name {
	case CmdPattern:
		sel.Pattern = value
	case CmdModel:
		sel.Model = value
	case CmdFile:
		if strings.EqualFold(value, "none") {
			value = NoFile
		}
		sel.ContextFile = value
	}
	return sel
}
