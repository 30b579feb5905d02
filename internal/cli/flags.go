// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fritzduchardt/fabric-ui/internal/chat"
)

// selectionFlags override the configured pattern, model and file.
type selectionFlags struct {
	pattern string
	model   string
	file    string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.pattern, "pattern", "p", "", "Pattern to start with")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model to start with")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", `Obsidian note to attach, "none" for no note`)
}

// apply returns s with the flagged values as defaults.
func (f selectionFlags) apply(s chat.Settings) chat.Settings {
	if f.pattern != "" {
		s.DefaultPattern = f.pattern
	}
	if f.model != "" {
		s.DefaultModel = f.model
		if !containsFold(s.Models, f.model) {
			s.Models = append(slices.Clone(s.Models), f.model)
		}
	}
	if f.file != "" {
		s.DefaultFile = f.file
		if strings.EqualFold(f.file, "none") {
			s.DefaultFile = chat.NoFile
		}
	}
	return s
}

// selection is the selection used without loading the server lists.
func (f selectionFlags) selection(s chat.Settings) chat.Selection {
	s = f.apply(s)
	sel := chat.Selection{
		Pattern:     s.DefaultPattern,
		Model:       s.DefaultModel,
		ContextFile: s.DefaultFile,
	}
	if sel.Pattern == "" {
		sel.Pattern = s.FallbackPattern
	}
	return sel
}

func containsFold(items []string, s string) bool {
	for _, item := range items {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
