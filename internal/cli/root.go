// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fritzduchardt/fabric-ui/internal/chat"
	"github.com/fritzduchardt/fabric-ui/internal/config"
	"github.com/fritzduchardt/fabric-ui/internal/fabric"
	"github.com/fritzduchardt/fabric-ui/internal/logging"
	"github.com/fritzduchardt/fabric-ui/internal/metrics"
	"github.com/fritzduchardt/fabric-ui/internal/render"
	"github.com/fritzduchardt/fabric-ui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const rootLongDesc string = `A terminal chat client for a fabric server.

Prompts are sent with a pattern, a model and an optional Obsidian note as
context. Answers stream in as they are generated and failed attempts are
retried automatically.

Run without a command to open the full-screen chat.

Examples:
  fabric-ui
  fabric-ui repl --pattern summarize
  fabric-ui ask "What is a merkle tree?"
  echo "notes" | fabric-ui ask --model claude-3-7-sonnet-latest
  fabric-ui --base-url http://localhost:8080/api patterns`

const rootShortDesc string = "Chat with a fabric server from the terminal"

// app is the state shared by all commands.
type app struct {
	configPath  string
	baseURL     string
	debug       bool
	metricsAddr string

	cfg *config.Config
}

// NewRootCmd builds the fabric-ui command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "fabric-ui",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTUI(cmd.Context(), chatFlags{})
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a TOML or JSON config file")
	cmd.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "fabric API base URL")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	cmd.AddCommand(
		newChatCmd(a),
		newReplCmd(a),
		newAskCmd(a),
		newListCmd(a, "patterns", "List the patterns the server offers", (*fabric.Client).PatternNames),
		newListCmd(a, "models", "List the models the server offers", (*fabric.Client).ModelNames),
		newListCmd(a, "files", "List the Obsidian notes available as context", (*fabric.Client).ObsidianFiles),
		newConfigCmd(a),
	)

	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:")+" "+err.Error())
		os.Exit(ExitFailure)
	}
}

// load reads the configuration and applies the global flags.
func (a *app) load(cmd *cobra.Command) error {
	styles.ApplyColorProfile()

	var cfg *config.Config
	var err error
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("base-url") {
		cfg.Server.BaseURL = strings.TrimSuffix(a.baseURL, "/")
	}
	if a.debug {
		cfg.Log.Debug = true
	}
	if a.metricsAddr != "" {
		cfg.Metrics.ListenAddr = a.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	a.cfg = cfg
	config.SetGlobal(cfg)
	return nil
}

// logger builds the logger for a command. Full-screen commands pass a nil
// console so that only the log file receives output.
func (a *app) logger(console io.Writer) (*zap.Logger, func()) {
	opts := logging.FromConfig(a.cfg.Log)
	opts.Console = console
	return logging.New(opts)
}

// startMetrics serves /metrics until ctx ends, when configured.
func (a *app) startMetrics(ctx context.Context, logger *zap.Logger) error {
	addr := a.cfg.Metrics.ListenAddr
	if addr == "" {
		return nil
	}
	if err := metrics.ListenAndServe(ctx, addr, logger); err != nil {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	logger.Info("serving metrics", zap.String("addr", addr))
	return nil
}

// orchestrator wires the client, retry policy and settings from the config.
func (a *app) orchestrator(sink chat.Sink, renderer render.Renderer, logger *zap.Logger) *chat.Orchestrator {
	return chat.NewOrchestrator(a.cfg.Client(logger), sink).
		WithSettings(a.cfg.ChatSettings()).
		WithRetry(a.cfg.RetryController(logger)).
		WithRenderer(renderer).
		WithLogger(logger)
}

// terminalRenderer returns the markdown renderer for terminal output, or
// the identity renderer when markdown is disabled or unavailable.
func (a *app) terminalRenderer(logger *zap.Logger) render.Renderer {
	if !a.cfg.UI.Markdown {
		return render.Identity
	}
	r, err := render.NewTerminal(a.cfg.UI.Theme, a.cfg.UI.WordWrap)
	if err != nil {
		logger.Warn("markdown rendering disabled", zap.Error(err))
		return render.Identity
	}
	return r
}
