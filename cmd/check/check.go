// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/k0sproject/diskwatch/cmd/internal"
	"github.com/k0sproject/diskwatch/pkg/bytesize"
	"github.com/k0sproject/diskwatch/pkg/monitor"
)

func NewCheckCmd(opts *internal.CLIOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check all mount points once and send alerts for breached ones",
		Long: `Check all mount points once and send alerts for breached ones.

Exits with a non-zero status if any of the mount points exceeds its limits or
couldn't be sampled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}

			samples := &lastSamples{}
			scheduler, err := internal.NewScheduler(cfg, dryRun, monitor.WithRecorder(samples))
			if err != nil {
				return err
			}

			outcomes := scheduler.CheckAll(cmd.Context())

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Mount", "Used", "Free", "Result"})
			table.SetAutoWrapText(false)
			table.SetAutoFormatHeaders(true)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetCenterSeparator("")
			table.SetColumnSeparator("")
			table.SetRowSeparator("")
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetTablePadding("\t")
			table.SetNoWhiteSpace(true)

			var unhealthy int
			for i, mount := range cfg.Mounts {
				used, free := "-", "-"
				if sample, ok := samples.get(mount.Path); ok {
					used = strconv.Itoa(sample.percentUsed) + "%"
					free = bytesize.IEC(sample.freeBytes)
				}

				result := color.GreenString(outcomes[i].String())
				if !outcomes[i].Healthy() {
					unhealthy++
					result = color.RedString(outcomes[i].String())
				}

				table.Append([]string{mount.Path, used, free, result})
			}

			table.Render()

			if unhealthy > 0 {
				return fmt.Errorf("%d of %d mount points need attention", unhealthy, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log alerts instead of sending them")

	return cmd
}

type sample struct {
	percentUsed int
	freeBytes   uint64
}

// lastSamples remembers the latest sample per mount point.
type lastSamples struct {
	mu      sync.Mutex
	samples map[string]sample
}

func (s *lastSamples) ObserveSample(mount string, percentUsed int, freeBytes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.samples == nil {
		s.samples = make(map[string]sample)
	}
	s.samples[mount] = sample{percentUsed, freeBytes}
}

func (*lastSamples) SampleFailed(string)         {}
func (*lastSamples) AlertOutcome(string, string) {}

func (s *lastSamples) get(mount string) (sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sample, ok := s.samples[mount]
	return sample, ok
}
