// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fritzduchardt/fabric-ui/internal/config"
)

const configLongDesc string = `Show and change the fabric-ui configuration.

The configuration lives in ~/.fabric-ui/config.toml (config.json is read
when no TOML file exists). FABRIC_UI_* environment variables and .env files
override it; set FABRIC_UI_CONFIG_DIR to use another directory.

Keys use dot notation:
  ` + "`fabric-ui config get chat.default_model`" + `

Examples:
  fabric-ui config init
  fabric-ui config show
  fabric-ui config set retry.max_attempts 5
  fabric-ui config set chat.models o4-mini,deepseek-reasoner
  fabric-ui config path`

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change the configuration",
		Long:  configLongDesc,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.configInit(cmd, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprint(cmd.OutOrStdout(), a.cfg.String())
				return nil
			},
		},
		&cobra.Command{
			Use:       "get <key>",
			Short:     "Print one configuration value",
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.GetAllKeys(),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.cfg.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(v))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one configuration value and save the file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.configSet(cmd, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := a.configFile()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		initCmd,
	)

	return cmd
}

// configFile is the file the config commands write to.
func (a *app) configFile() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPathTOML()
}

func (a *app) saveConfig(cfg *config.Config) (string, error) {
	path, err := a.configFile()
	if err != nil {
		return "", err
	}
	if a.configPath == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return "", fmt.Errorf("could not create config directory: %w", err)
		}
	}
	if strings.HasSuffix(path, ".json") {
		return path, config.SaveJSON(cfg, path)
	}
	return path, config.SaveTOML(cfg, path)
}

func (a *app) configSet(cmd *cobra.Command, key, value string) error {
	cfg := a.cfg.Clone()
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	path, err := a.saveConfig(cfg)
	if err != nil {
		return err
	}
	a.cfg = cfg
	config.SetGlobal(cfg)

	v, _ := cfg.Get(key)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s (%s)\n",
		SuccessStyle.Render("Saved"), key, formatValue(v), path)
	return nil
}

func (a *app) configInit(cmd *cobra.Command, force bool) error {
	path, err := a.configFile()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if _, err := a.saveConfig(config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Wrote"), path)
	return nil
}

// formatValue prints lists comma separated and maps as k=v pairs, the
// forms config set accepts.
func formatValue(v interface{}) string {
	switch v := v.(type) {
	case []string:
		return strings.Join(v, ",")
	case map[string]float64:
		pairs := make([]string, 0, len(v))
		for k, f := range v {
			pairs = append(pairs, fmt.Sprintf("%s=%g", k, f))
		}
		slices.Sort(pairs)
		return strings.Join(pairs, ",")
	default:
		return fmt.Sprint(v)
	}
}
