// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package internal

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/k0sproject/diskwatch/pkg/config"
)

// DefaultLogFile is the file log output is appended to by default.
const DefaultLogFile = "disk-monitor.log"

// CLIOptions are the options shared by all commands.
type CLIOptions struct {
	ConfigFile string
	LogFile    string
	Debug      DebugFlags
}

func (o *CLIOptions) AddToFlagSet(flags *pflag.FlagSet) {
	flags.StringVarP(&o.ConfigFile, "config", "c", config.DefaultPath, "Path to the config file")
	flags.StringVarP(&o.LogFile, "logfile", "l", DefaultLogFile, "Path to the log file (empty to log to stdout only)")
	o.Debug.AddToFlagSet(flags)
}

// LoadConfig loads and validates the config file.
func (o *CLIOptions) LoadConfig() (*config.Config, error) {
	logrus.Debugf("Using config file: %s", o.ConfigFile)
	return config.Load(o.ConfigFile)
}
