// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fritzduchardt/fabric-ui/internal/chat"
	"github.com/fritzduchardt/fabric-ui/internal/config"
	"github.com/fritzduchardt/fabric-ui/internal/render"
	"github.com/fritzduchardt/fabric-ui/internal/util"
)

const replLongDesc string = `Chat line by line with history and line editing.

Answers are printed as they stream in. Ctrl+C cancels the answer being
streamed, Ctrl+D or /quit leaves. Type /help for the slash commands.

Examples:
  fabric-ui repl
  fabric-ui repl --pattern summarize --file none`

const replShortDesc string = "Chat line by line in the terminal"

// optionsTimeout bounds loading the pattern, model and file lists.
const optionsTimeout = 15 * time.Second

type replCommander struct {
	app *app
	selectionFlags
}

func newReplCmd(a *app) *cobra.Command {
	cmder := &replCommander{app: a}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: replShortDesc,
		Long:  replLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmder.register(cmd)
	return cmd
}

func (c *replCommander) run(ctx context.Context, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var console io.Writer
	if c.app.cfg.Log.Debug {
		console = cmd.ErrOrStderr()
	}
	logger, closeLog := c.app.logger(console)
	defer closeLog()
	if err := c.app.startMetrics(ctx, logger); err != nil {
		return err
	}

	printer := newStreamPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), true)
	orch := c.app.orchestrator(printer, render.Identity, logger).
		WithSettings(c.apply(c.app.cfg.ChatSettings()))

	r := newREPL(orch, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
	r.loadOptions(ctx, c.app.cfg.Client(logger))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				orch.CancelAll()
			}
		}
	}()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath, err := config.HistoryPath()
	if err == nil {
		loadHistory(line, historyPath)
		defer saveHistory(line, historyPath, logger)
	}

	fmt.Fprintln(r.out, DimStyle.Render("Connected to "+c.app.cfg.Server.BaseURL+". Type /help for commands."))
	for {
		input, err := line.Prompt(r.prompt())
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			// EOF (Ctrl+D)
			fmt.Fprintln(r.out)
			orch.CancelAll()
			return nil
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if quit := r.handleLine(ctx, input); quit {
			return nil
		}
	}
}

func loadHistory(line *liner.State, path string) {
	if f, err := os.Open(path); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
}

func saveHistory(line *liner.State, path string, logger *zap.Logger) {
	var buf bytes.Buffer
	if _, err := line.WriteHistory(&buf); err != nil {
		logger.Warn("could not encode history", zap.Error(err))
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		logger.Warn("could not save history", zap.Error(err))
		return
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		logger.Warn("could not save history", zap.String("path", path), zap.Error(err))
	}
}

// =============================================================================
// REPL STATE
// =============================================================================

// repl holds the selection and answers of a line-oriented chat.
type repl struct {
	orch   *chat.Orchestrator
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger

	options      chat.Options
	selection    chat.Selection
	continueNext bool
	lastAnswer   string
}

func newREPL(orch *chat.Orchestrator, out, errOut io.Writer, logger *zap.Logger) *repl {
	opts := chat.StaticOptions(orch.Settings())
	return &repl{
		orch:      orch,
		out:       out,
		errOut:    errOut,
		logger:    logger,
		options:   opts,
		selection: opts.DefaultSelection(),
	}
}

// loadOptions replaces the static lists with the server's. Lists that
// cannot be loaded keep their fallbacks.
func (r *repl) loadOptions(ctx context.Context, cat chat.Catalog) {
	ctx, cancel := context.WithTimeout(ctx, optionsTimeout)
	defer cancel()

	opts, err := chat.LoadOptions(ctx, cat, r.orch.Settings())
	if err != nil {
		r.logger.Warn("loading options", zap.Error(err))
		fmt.Fprintln(r.errOut, WarningStyle.Render("Some lists could not be loaded, using defaults: "+err.Error()))
	}
	r.options = opts
	r.selection = opts.DefaultSelection()
}

func (r *repl) prompt() string {
	if r.continueNext {
		return r.selection.Pattern + " (continue)> "
	}
	return r.selection.Pattern + "> "
}

// handleLine runs one input line and reports whether the REPL should end.
func (r *repl) handleLine(ctx context.Context, line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if cmd, ok := chat.ParseCommand(line); ok {
		return r.runCommand(ctx, cmd)
	}

	r.submit(ctx, line, r.continueNext)
	r.continueNext = false
	return false
}

func (r *repl) submit(ctx context.Context, input string, continueSession bool) {
	outcome := r.orch.Submit(ctx, chat.Submission{
		Input:     input,
		Selection: r.selection,
		Continue:  continueSession,
	})
	if outcome.Kind == chat.OutcomeSuccess {
		r.lastAnswer = outcome.Text
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (r *repl) runCommand(ctx context.Context, cmd chat.Command) bool {
	switch cmd.Name {
	case chat.CmdPattern, chat.CmdModel, chat.CmdFile:
		choices, _ := r.options.ChoicesFor(cmd.Name)
		if cmd.Arg == "" {
			r.printChoices(cmd.Name, choices)
			return false
		}
		value := cmd.Arg
		if !(cmd.Name == chat.CmdFile && strings.EqualFold(cmd.Arg, "none")) {
			match, ok := choices.Match(cmd.Arg)
			if !ok {
				fmt.Fprintln(r.errOut, ErrorStyle.Render(fmt.Sprintf("No %s matches %q", cmd.Name, cmd.Arg)))
				return false
			}
			value = match
		}
		r.selection = r.selection.Apply(cmd.Name, value)
		fmt.Fprintf(r.out, "%s %s\n", LabelStyle.Render(cmd.Name+":"), ValueStyle.Render(r.current(cmd.Name)))

	case chat.CmdContinue:
		if cmd.Arg == "" {
			r.continueNext = true
			fmt.Fprintln(r.out, DimStyle.Render("The next message continues the current session."))
			return false
		}
		r.continueNext = false
		r.submit(ctx, cmd.Arg, true)

	case chat.CmdClear:
		r.orch.Conversation().Reset()
		r.lastAnswer = ""
		r.continueNext = false
		if isTerminal(r.out) {
			fmt.Fprint(r.out, "\033[H\033[2J")
		}
		fmt.Fprintln(r.out, DimStyle.Render("Conversation cleared."))

	case chat.CmdCopy:
		r.copyLastAnswer(cmd.Arg)

	case chat.CmdHelp:
		fmt.Fprintln(r.out, TitleStyle.Render("Commands"))
		for _, h := range chat.CommandHelp {
			fmt.Fprintf(r.out, "  %s%s\n", util.PadRight(h[0], 20), DimStyle.Render(h[1]))
		}
		fmt.Fprintln(r.out, DimStyle.Render("Ctrl+C cancels an answer, Ctrl+D quits."))

	case chat.CmdQuit:
		r.orch.CancelAll()
		return true

	default:
		fmt.Fprintln(r.errOut, ErrorStyle.Render(fmt.Sprintf("Unknown command /%s, try /help", cmd.Name)))
	}
	return false
}

func (r *repl) current(name string) string {
	switch name {
	case chat.CmdPattern:
		return r.selection.Pattern
	case chat.CmdModel:
		return r.selection.Model
	case chat.CmdFile:
		if r.selection.ContextFile == "" {
			return chat.NoFile
		}
		return r.selection.ContextFile
	}
	return ""
}

func (r *repl) printChoices(name string, choices chat.Choices) {
	current := r.current(name)
	fmt.Fprintln(r.out, TitleStyle.Render(strings.ToUpper(name[:1])+name[1:]+"s"))
	for _, item := range choices.Items {
		if item == current {
			fmt.Fprintln(r.out, CurrentStyle.Render("* "+item))
		} else {
			fmt.Fprintln(r.out, "  "+item)
		}
	}
}

// copyLastAnswer writes the plain text of the last answer to path, or to
// the output when no path is given.
func (r *repl) copyLastAnswer(path string) {
	if r.lastAnswer == "" {
		fmt.Fprintln(r.errOut, WarningStyle.Render("Nothing to copy yet."))
		return
	}
	text := render.PlainText(r.lastAnswer)
	if path == "" {
		fmt.Fprintln(r.out, text)
		return
	}
	if err := util.AtomicWriteFile(path, []byte(text), 0600); err != nil {
		fmt.Fprintln(r.errOut, ErrorStyle.Render("Copy failed: "+err.Error()))
		return
	}
	fmt.Fprintln(r.out, SuccessStyle.Render("Copied")+" the last answer to "+path)
}
