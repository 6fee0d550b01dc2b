// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cli implements the conds command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"code.hybscloud.com/conds/internal/config"
	"code.hybscloud.com/conds/internal/logging"
)

// RootOptions holds global flags and the state derived from them.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	Config config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the conds CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "conds",
		Short: "Run condition-handling scenarios",
		Long: `conds runs YAML scenarios that signal conditions, establish handlers and
restarts, and register cleanup guards, printing the resulting trace.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// load reads the config file and applies flag overrides.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		if _, err := logging.ParseLevel(o.LogLevel); err != nil {
			return err
		}
		cfg.LogLevel = o.LogLevel
	}
	o.Config = cfg
	o.Logger = logging.NewWriter(cmd.ErrOrStderr(), cfg.Level())
	return nil
}
