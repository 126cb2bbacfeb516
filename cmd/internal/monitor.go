// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package internal

import (
	"github.com/sirupsen/logrus"

	"github.com/k0sproject/diskwatch/pkg/config"
	"github.com/k0sproject/diskwatch/pkg/monitor"
	"github.com/k0sproject/diskwatch/pkg/notify"
)

// NewScheduler wires the configured sampler and notification sink into a
// scheduler. With dryRun, alerts are logged instead of mailed.
func NewScheduler(cfg *config.Config, dryRun bool, opts ...monitor.Option) (*monitor.Scheduler, error) {
	watches, err := cfg.Watches()
	if err != nil {
		return nil, err
	}

	sampler, err := cfg.NewSampler()
	if err != nil {
		return nil, err
	}

	var sink notify.Sink
	if dryRun {
		sink = &notify.LogSink{Log: logrus.WithField("component", "notify")}
	} else {
		smtp, err := notify.NewSMTPSink(cfg.SMTP())
		if err != nil {
			return nil, err
		}
		sink = smtp
	}

	notifier := notify.New(sink, notify.WithRetries(cfg.Mail.Attempts, cfg.Mail.RetryDelay))

	opts = append([]monitor.Option{monitor.WithTimeouts(cfg.SampleTimeout, cfg.SendTimeout)}, opts...)
	return monitor.New(watches, sampler, notifier, opts...), nil
}
