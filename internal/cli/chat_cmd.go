// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fritzduchardt/fabric-ui/internal/config"
	"github.com/fritzduchardt/fabric-ui/internal/ui/styles"
	"github.com/fritzduchardt/fabric-ui/internal/ui/tui"
)

const chatLongDesc string = `Open the full-screen chat.

Enter sends the message, Alt+Enter inserts a new line and Esc cancels the
answer being streamed. Type /help for the slash commands.

Examples:
  fabric-ui chat
  fabric-ui chat --model deepseek-reasoner --file none
  fabric-ui chat --watch`

const chatShortDesc string = "Open the full-screen chat"

type chatFlags struct {
	selectionFlags
	watch bool
}

func newChatCmd(a *app) *cobra.Command {
	flags := chatFlags{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTUI(cmd.Context(), flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Report changes to the config file while running")

	return cmd
}

func (a *app) runTUI(ctx context.Context, flags chatFlags) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &TTYRequiredError{Operation: "open the chat"}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger, closeLog := a.logger(nil)
	defer closeLog()
	if err := a.startMetrics(ctx, logger); err != nil {
		return err
	}

	theme := styles.NewTheme()
	renderer := a.terminalRenderer(logger)

	sink := tui.NewSink(tui.DefaultMaxFPS)
	orch := a.orchestrator(sink, renderer, logger).
		WithSettings(flags.apply(a.cfg.ChatSettings()))

	copyPath := ""
	if dir, err := config.ConfigDir(); err == nil {
		copyPath = filepath.Join(dir, "last_answer.md")
	}

	model := tui.New(ctx, tui.Config{
		Orchestrator: orch,
		Catalog:      a.cfg.Client(logger),
		Theme:        theme,
		CopyPath:     copyPath,
		Logger:       logger,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	sink.Attach(program.Send)

	if flags.watch {
		go a.watchConfig(ctx, program, logger)
	}

	_, err := program.Run()
	orch.CancelAll()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// watchConfig reports config file changes in the transcript. Settings of a
// running chat are fixed; a change takes effect on the next start.
func (a *app) watchConfig(ctx context.Context, program *tea.Program, logger *zap.Logger) {
	path := a.configPath
	if path == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			logger.Warn("config watch disabled", zap.Error(err))
			return
		}
		path = p
	}

	err := config.Watch(ctx, path, config.DefaultWatchDebounce, func(cfg *config.Config, err error) {
		if err != nil {
			logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
			program.Send(tui.NoticeMsg{Text: "Config change ignored: " + err.Error()})
			return
		}
		config.SetGlobal(cfg)
		logger.Info("config reloaded", zap.String("path", path))
		program.Send(tui.NoticeMsg{Text: "Config file changed. Restart to apply it."})
	})
	if err != nil {
		logger.Warn("config watch stopped", zap.Error(err))
	}
}
