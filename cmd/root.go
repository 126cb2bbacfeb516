// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/k0sproject/diskwatch/cmd/check"
	"github.com/k0sproject/diskwatch/cmd/internal"
	"github.com/k0sproject/diskwatch/cmd/run"
	"github.com/k0sproject/diskwatch/cmd/validate"
	"github.com/k0sproject/diskwatch/cmd/version"
	internallog "github.com/k0sproject/diskwatch/internal/pkg/log"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var (
		opts            internal.CLIOptions
		shutdownLogging internallog.ShutdownLoggingFunc
	)

	cmd := &cobra.Command{
		Use:   "diskwatch",
		Short: "diskwatch - Disk capacity monitoring with email alerts",
		Long: `diskwatch periodically samples the capacity of the configured mount points
and sends an email alert whenever one of them exceeds its fill level or falls
below its minimum free space. Alerts for the same mount point are rate limited.

Without a sub-command, diskwatch runs the monitor.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			shutdown, err := internallog.InitLogging(cmd.OutOrStdout(), opts.LogFile)
			if err != nil {
				return err
			}
			shutdownLogging = shutdown
			opts.Debug.Run(cmd, args)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if shutdownLogging != nil {
				shutdownLogging()
			}
		},
	}

	opts.AddToFlagSet(cmd.PersistentFlags())

	runCmd := run.NewRunCmd(&opts)
	cmd.RunE = runCmd.RunE
	cmd.Flags().AddFlagSet(runCmd.Flags())

	cmd.AddCommand(runCmd)
	cmd.AddCommand(check.NewCheckCmd(&opts))
	cmd.AddCommand(validate.NewValidateCmd(&opts))
	cmd.AddCommand(version.NewVersionCmd())

	cmd.CompletionOptions.DisableDefaultCmd = true

	return cmd
}
