// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor periodically samples mount points and sends rate limited
// alerts when their thresholds are breached.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/k0sproject/diskwatch/pkg/alert"
	"github.com/k0sproject/diskwatch/pkg/disk"
	"github.com/k0sproject/diskwatch/pkg/metrics"
)

const (
	DefaultSampleTimeout = 30 * time.Second
	DefaultSendTimeout   = 30 * time.Second
)

// Notifier delivers alerts. It has to be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Recorder receives the measurements and alert outcomes of every check.
type Recorder interface {
	ObserveSample(mount string, percentUsed int, freeBytes uint64)
	SampleFailed(mount string)
	AlertOutcome(mount, result string)
}

// Outcome summarizes a single check of a watch.
type Outcome int

const (
	// OutcomeSkipped means the previous check of the same watch was still running.
	OutcomeSkipped Outcome = iota
	// OutcomeSampleFailed means the mount point couldn't be measured.
	OutcomeSampleFailed
	// OutcomeOK means all thresholds were met.
	OutcomeOK
	// OutcomeSuppressed means a threshold was breached, but the alert is still in cooldown.
	OutcomeSuppressed
	// OutcomeAlertSent means a threshold was breached and an alert has been delivered.
	OutcomeAlertSent
	// OutcomeAlertFailed means a threshold was breached and the alert couldn't be delivered.
	OutcomeAlertFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSampleFailed:
		return "sample failed"
	case OutcomeOK:
		return "ok"
	case OutcomeSuppressed:
		return "alert suppressed"
	case OutcomeAlertSent:
		return "alert sent"
	case OutcomeAlertFailed:
		return "alert failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Healthy reports whether the check found the mount point within its limits.
func (o Outcome) Healthy() bool {
	return o == OutcomeOK || o == OutcomeSkipped
}

// Scheduler drives one independently scheduled check per MountWatch.
type Scheduler struct {
	tasks    []*task
	sampler  disk.Sampler
	notifier Notifier

	clock         clock.PassiveClock
	log           *logrus.Entry
	recorder      Recorder
	sampleTimeout time.Duration
	sendTimeout   time.Duration

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// task holds the state of a single watch. The mutex serializes checks of
// the same watch; it also guards the gate.
type task struct {
	watch MountWatch
	log   *logrus.Entry

	mu   sync.Mutex
	gate alert.Gate
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used to rate limit alerts.
func WithClock(clock clock.PassiveClock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithLogger sets the logger used for all events.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithRecorder sets the recorder for samples and alert outcomes.
func WithRecorder(recorder Recorder) Option {
	return func(s *Scheduler) { s.recorder = recorder }
}

// WithTimeouts bounds the duration of sampling and alert delivery.
func WithTimeouts(sample, send time.Duration) Option {
	return func(s *Scheduler) {
		if sample > 0 {
			s.sampleTimeout = sample
		}
		if send > 0 {
			s.sendTimeout = send
		}
	}
}

// New creates a Scheduler for the given watches.
func New(watches []MountWatch, sampler disk.Sampler, notifier Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		sampler:       sampler,
		notifier:      notifier,
		clock:         clock.RealClock{},
		log:           logrus.WithField("component", "monitor"),
		recorder:      nopRecorder{},
		sampleTimeout: DefaultSampleTimeout,
		sendTimeout:   DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, watch := range watches {
		s.tasks = append(s.tasks, &task{
			watch: watch,
			log:   s.log.WithField("mount", watch.Path),
		})
	}

	return s
}

// Start registers a recurring check for each watch and starts scheduling
// them. Checks of different watches run concurrently. Start fails without
// scheduling anything if any of the schedules is invalid.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("already started")
	}

	schedules := make([]cron.Schedule, len(s.tasks))
	for i, t := range s.tasks {
		schedule, err := ParseSchedule(t.watch.Schedule)
		if err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", t.watch.Schedule, t.watch.Path, err)
		}
		schedules[i] = schedule
	}

	s.log.WithField("mounts", len(s.tasks)).Info("Starting disk monitoring")

	ctx, cancel := context.WithCancel(ctx)
	c := cron.New()
	for i, t := range s.tasks {
		c.Schedule(schedules[i], cron.FuncJob(func() { s.check(ctx, t) }))
		t.log.WithField("schedule", t.watch.Schedule).Debug("Scheduled checks")
	}
	c.Start()

	s.cron, s.cancel = c, cancel
	return nil
}

// Stop stops scheduling new checks. Checks that are already running are
// canceled and not waited for.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}

	s.cron.Stop()
	s.cancel()
	s.cron, s.cancel = nil, nil
	s.log.Info("Stopped disk monitoring")
}

// CheckAll checks every watch once, concurrently, and returns the outcomes
// in the order of the watches.
func (s *Scheduler) CheckAll(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, len(s.tasks))

	var g errgroup.Group
	for i, t := range s.tasks {
		g.Go(func() error {
			outcomes[i] = s.check(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// check samples a single watch and fires an alert if needed.
func (s *Scheduler) check(ctx context.Context, t *task) Outcome {
	if !t.mu.TryLock() {
		t.log.Debug("Previous check still running, skipping")
		return OutcomeSkipped
	}
	defer t.mu.Unlock()

	path := t.watch.Path

	sampleCtx, cancel := context.WithTimeout(ctx, s.sampleTimeout)
	usage, err := s.sampler.Sample(sampleCtx, path)
	cancel()
	if err != nil {
		s.recorder.SampleFailed(path)
		t.log.WithError(err).Errorf("Error monitoring %s", path)
		return OutcomeSampleFailed
	}

	s.recorder.ObserveSample(path, usage.PercentUsed, usage.FreeBytes)
	log := t.log.WithFields(logrus.Fields{
		"used_percent": usage.PercentUsed,
		"free_bytes":   usage.FreeBytes,
	})

	if !t.watch.Breached(usage) {
		log.Debug("Disk within limits")
		return OutcomeOK
	}

	log.Infof("Disk %s exceeds limits", path)

	now := s.clock.Now()
	if !t.gate.ShouldFire(now, t.watch.AlertCooldown) {
		s.recorder.AlertOutcome(path, metrics.AlertSuppressed)
		last, _ := t.gate.LastAlertAt()
		log.WithField("last_alert", last).Debug("Alert suppressed, still in cooldown")
		return OutcomeSuppressed
	}

	subject, body := FormatAlert(&t.watch, usage)

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	err = s.notifier.Send(sendCtx, subject, body)
	cancel()
	if err != nil {
		// The gate stays untouched, so the next breach retries right away.
		s.recorder.AlertOutcome(path, metrics.AlertFailed)
		log.WithError(err).Error("Failed to send alert")
		return OutcomeAlertFailed
	}

	s.recorder.AlertOutcome(path, metrics.AlertSent)
	log.Infof("Alert sent: %s", subject)
	t.gate.RecordFired(now)
	return OutcomeAlertSent
}

type nopRecorder struct{}

func (nopRecorder) ObserveSample(string, int, uint64) {}
func (nopRecorder) SampleFailed(string)               {}
func (nopRecorder) AlertOutcome(string, string)       {}
