// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/k0sproject/diskwatch/pkg/build"
	"github.com/spf13/cobra"
)

func NewVersionCmd() *cobra.Command {
	var isJsn bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the diskwatch version",
		Args:  cobra.NoArgs,
		// Printing the version needs neither logging nor a config file.
		PersistentPreRun: func(*cobra.Command, []string) {},
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo{
				Version:   build.Version,
				Commit:    build.Commit,
				GoVersion: runtime.Version(),
			}
			return info.print(cmd.OutOrStdout(), isJsn)
		},
	}

	cmd.Flags().BoolVarP(&isJsn, "json", "j", false, "print all version info in json")
	return cmd
}

type versionInfo struct {
	Version   string `json:"diskwatch"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go"`
}

func (v versionInfo) print(w io.Writer, isJsn bool) error {
	if isJsn {
		jsn, err := json.MarshalIndent(v, "", "   ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(jsn))
		return err
	}

	_, err := fmt.Fprintln(w, v.Version)
	return err
}
