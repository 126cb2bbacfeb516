// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

// Package log configures the process wide logrus logger.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const TimestampFormat = "2006-01-02 15:04:05"

type ShutdownLoggingFunc func()

// InitLogging sets up the standard logger to write to out and, unless
// logFile is empty, to append to logFile as well.
func InitLogging(out io.Writer, logFile string) (ShutdownLoggingFunc, error) {
	return initLogger(logrus.StandardLogger(), out, logFile)
}

func initLogger(logger *logrus.Logger, stdout io.Writer, logFile string) (ShutdownLoggingFunc, error) {
	logger.SetFormatter(NewFormatter())
	SetInfoLevel(logger)

	if logFile == "" {
		logger.SetOutput(stdout)
		return func() {}, nil
	}

	f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		logger.SetOutput(stdout)
		return func() {}, fmt.Errorf("failed to open log file: %w", err)
	}

	logger.SetOutput(io.MultiWriter(stdout, f))
	return func() {
		logger.SetOutput(stdout)
		_ = f.Close()
	}, nil
}

// NewFormatter returns the text formatter used for all output.
func NewFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		TimestampFormat: TimestampFormat,
		FullTimestamp:   true,
		DisableColors:   true,
	}
}

func SetDebugLevel(logger *logrus.Logger) {
	logger.SetLevel(logrus.DebugLevel)
}

func SetInfoLevel(logger *logrus.Logger) {
	logger.SetLevel(logrus.InfoLevel)
}

func SetWarnLevel(logger *logrus.Logger) {
	logger.SetLevel(logrus.WarnLevel)
}
