// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/k0sproject/diskwatch/cmd/internal"
	"github.com/k0sproject/diskwatch/pkg/bytesize"
	"github.com/k0sproject/diskwatch/pkg/monitor"
)

func NewValidateCmd(opts *internal.CLIOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and print the resolved mount points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}

			watches, err := cfg.Watches()
			if err != nil {
				return err
			}

			now := time.Now()

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Mount", "Max used", "Min free", "Schedule", "Next check", "Alert interval"})
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

			for _, watch := range watches {
				schedule, err := monitor.ParseSchedule(watch.Schedule)
				if err != nil {
					return err
				}

				table.Append([]string{
					watch.Path,
					strconv.Itoa(watch.MaxPercentUsed) + "%",
					fmt.Sprintf("%s (%s)", watch.MinFree, bytesize.IEC(watch.MinFreeBytes)),
					watch.Schedule,
					humanize.RelTime(schedule.Next(now), now, "ago", "from now"),
					watch.AlertCooldown.String(),
				})
			}

			table.Render()

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "\n%s is valid, alerts go to %v via %s:%d\n",
				opts.ConfigFile, cfg.Mail.To, cfg.Mail.Host, cfg.Mail.Port)
			return err
		},
	}
}
