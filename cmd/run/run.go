// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/k0sproject/diskwatch/cmd/internal"
	"github.com/k0sproject/diskwatch/pkg/config"
	"github.com/k0sproject/diskwatch/pkg/metrics"
	"github.com/k0sproject/diskwatch/pkg/monitor"
)

func NewRunCmd(opts *internal.CLIOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor the configured mount points until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return run(ctx, cfg, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log alerts instead of sending them")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, dryRun bool) error {
	recorder := metrics.NewRecorder()
	scheduler, err := internal.NewScheduler(cfg, dryRun, monitor.WithRecorder(recorder))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if addr := cfg.Metrics.ListenAddress; addr != "" {
		g.Go(func() error {
			if err := recorder.Serve(ctx, addr); err != nil {
				return fmt.Errorf("failed to serve metrics on %s: %w", addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		logrus.Info("Shutting down")
		scheduler.Stop()
		return nil
	})

	return g.Wait()
}
