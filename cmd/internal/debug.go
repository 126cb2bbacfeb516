// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package internal

import (
	"errors"
	"net/http"
	_ "net/http/pprof"

	internallog "github.com/k0sproject/diskwatch/internal/pkg/log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type DebugFlags struct {
	verbose       bool
	debug         bool
	debugListenOn string
}

// Adds the debug flags to the given FlagSet.
func (f *DebugFlags) AddToFlagSet(flags *pflag.FlagSet) {
	flags.BoolVarP(&f.verbose, "verbose", "v", true, "Verbose logging")
	flags.BoolVarP(&f.debug, "debug", "d", false, "Debug logging (implies verbose logging)")
	flags.StringVar(&f.debugListenOn, "debugListenOn", ":6060", "Http listenOn for Debug pprof handler")
}

// Run applies the log level. With --debug, it also starts the pprof server.
func (f *DebugFlags) Run(*cobra.Command, []string) {
	logger := logrus.StandardLogger()

	switch {
	case f.debug:
		internallog.SetDebugLevel(logger)

		if !f.verbose {
			logrus.Debug("--debug overrides --verbose=false")
		}

		if f.debugListenOn == "" {
			return
		}

		go func() {
			log := logrus.WithField("debug_server", f.debugListenOn)
			log.Debug("Starting debug server")
			if err := http.ListenAndServe(f.debugListenOn, nil); !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Debug("Failed to start debug server")
			} else {
				log.Debug("Debug server closed")
			}
		}()

	case f.verbose:
		internallog.SetInfoLevel(logger)

	default:
		internallog.SetWarnLevel(logger)
	}
}
