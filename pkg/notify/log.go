// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/k0sproject/diskwatch/internal/pkg/log"
)

// LogSink "delivers" alerts by logging them line by line. Used for dry runs.
type LogSink struct {
	Log *logrus.Entry
}

var _ Sink = (*LogSink)(nil)

// Deliver implements [Sink].
func (s *LogSink) Deliver(_ context.Context, msg Message) error {
	entry := s.Log
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}

	entry = entry.WithField("subject", msg.Subject)
	entry.Warn("Alert (dry run)")

	w := log.NewWriter(entry, logrus.WarnLevel, 4096)
	defer w.Flush()
	_, err := io.WriteString(w, msg.Body)
	return err
}
