// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fritzduchardt/fabric-ui/internal/chat"
	"github.com/fritzduchardt/fabric-ui/internal/render"
)

const askLongDesc string = `Send one prompt and print the answer.

The prompt is taken from the arguments, or from stdin when no arguments
are given and stdin is not a terminal. An empty prompt lets the pattern
run on its own.

On a terminal the answer is rendered as markdown once it is complete.
Otherwise, or with --raw, the text is printed as it streams in.

Examples:
  fabric-ui ask "Summarize the theory of relativity"
  cat notes.md | fabric-ui ask --pattern summarize
  fabric-ui ask --raw --model o4-mini "Write a haiku" > haiku.txt`

const askShortDesc string = "Send one prompt and print the answer"

type askCommander struct {
	app *app
	selectionFlags
	raw bool
}

func newAskCmd(a *app) *cobra.Command {
	cmder := &askCommander{app: a}

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: askShortDesc,
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmder.register(cmd)
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the raw text as it streams in")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger, closeLog := c.app.logger(cmd.ErrOrStderr())
	defer closeLog()
	if err := c.app.startMetrics(ctx, logger); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	stream := c.raw || !c.app.cfg.UI.Markdown || !isTerminal(out)
	renderer := render.Identity
	if !stream {
		renderer = c.app.terminalRenderer(logger)
	}

	printer := newStreamPrinter(out, cmd.ErrOrStderr(), stream)
	orch := c.app.orchestrator(printer, renderer, logger)

	outcome := orch.Submit(ctx, chat.Submission{
		Input:     prompt,
		Selection: c.selection(orch.Settings()),
	})

	switch outcome.Kind {
	case chat.OutcomeSuccess:
		return nil
	case chat.OutcomeCancelled:
		return &ExitError{Code: ExitCancelled}
	default:
		return &ExitError{Code: ExitFailure}
	}
}

// readPrompt joins args, or reads stdin when there are none and it is not
// a terminal.
func readPrompt(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if isTerminal(in) {
		return "", nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("could not read prompt from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
