// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fritzduchardt/fabric-ui/internal/fabric"
)

// listFunc fetches one of the server's name lists.
type listFunc func(c *fabric.Client, ctx context.Context) ([]string, error)

type listCommander struct {
	app   *app
	what  string
	fetch listFunc
}

func newListCmd(a *app, what, short string, fetch listFunc) *cobra.Command {
	cmder := &listCommander{app: a, what: what, fetch: fetch}

	return &cobra.Command{
		Use:   what,
		Short: short,
		Long: short + `.

Names are printed one per line so the output can be piped.

Examples:
  fabric-ui ` + what + `
  fabric-ui ` + what + ` | grep -i daily`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}
}

func (c *listCommander) run(ctx context.Context, cmd *cobra.Command) error {
	logger, closeLog := c.app.logger(cmd.ErrOrStderr())
	defer closeLog()

	client := c.app.cfg.Client(logger)
	names, err := c.fetch(client, ctx)
	if err != nil {
		return fmt.Errorf("could not list %s from %s: %w", c.what, client.BaseURL(), err)
	}

	if len(names) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "No %s found.\n", c.what)
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
