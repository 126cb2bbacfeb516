// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/k0sproject/diskwatch/pkg/bytesize"
	"github.com/k0sproject/diskwatch/pkg/disk"
	"github.com/k0sproject/diskwatch/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sentAlert struct {
	subject, body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentAlert
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentAlert{subject, body})
	return nil
}

func (n *fakeNotifier) alerts() []sentAlert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentAlert(nil), n.sent...)
}

func (n *fakeNotifier) setErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

type fakeRecorder struct {
	mu       sync.Mutex
	samples  int
	failures int
	outcomes []string
}

func (r *fakeRecorder) ObserveSample(string, int, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples++
}

func (r *fakeRecorder) SampleFailed(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func (r *fakeRecorder) AlertOutcome(_, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, result)
}

func fixedUsage(usage disk.Usage) disk.Sampler {
	return disk.SamplerFunc(func(context.Context, string) (disk.Usage, error) {
		return usage, nil
	})
}

var (
	rootWatch = MountWatch{
		Path:           "/",
		MaxPercentUsed: 90,
		MinFreeBytes:   10 * bytesize.GiB,
		MinFree:        "10GB",
		Schedule:       "*/5 * * * *",
		AlertCooldown:  time.Hour,
	}
	breachingUsage = disk.Usage{PercentUsed: 95, FreeBytes: 5 * bytesize.GiB}
	healthyUsage   = disk.Usage{PercentUsed: 50, FreeBytes: 100 * bytesize.GiB}
)

type harness struct {
	scheduler *Scheduler
	notifier  *fakeNotifier
	recorder  *fakeRecorder
	clock     *clocktesting.FakePassiveClock
	logs      *test.Hook
}

func newHarness(t *testing.T, sampler disk.Sampler, watches ...MountWatch) *harness {
	t.Helper()

	logger, logs := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
		clock:    clocktesting.NewFakePassiveClock(time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)),
		logs:     logs,
	}
	h.scheduler = New(watches, sampler, h.notifier,
		WithClock(h.clock),
		WithLogger(logrus.NewEntry(logger)),
		WithRecorder(h.recorder),
	)
	return h
}

func (h *harness) tick(t *testing.T) Outcome {
	t.Helper()
	require.Len(t, h.scheduler.tasks, 1)
	return h.scheduler.check(context.TODO(), h.scheduler.tasks[0])
}

func (h *harness) advance(d time.Duration) {
	h.clock.SetTime(h.clock.Now().Add(d))
}

func countMessages(hook *test.Hook, level logrus.Level, prefix string) int {
	var count int
	for _, entry := range hook.AllEntries() {
		if entry.Level == level && strings.HasPrefix(entry.Message, prefix) {
			count++
		}
	}
	return count
}

func TestScheduler_FirstBreachSendsAlert(t *testing.T) {
	h := newHarness(t, fixedUsage(breachingUsage), rootWatch)

	assert.Equal(t, OutcomeAlertSent, h.tick(t))

	alerts := h.notifier.alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Disk Alert: /", alerts[0].subject)
	assert.Contains(t, alerts[0].body, "Current Fill Level: 95%")
	assert.Contains(t, alerts[0].body, "Min Free Space: 10GB")

	last, fired := h.scheduler.tasks[0].gate.LastAlertAt()
	assert.True(t, fired)
	assert.Equal(t, h.clock.Now(), last)

	assert.Equal(t, 1, countMessages(h.logs, logrus.InfoLevel, "Alert sent: Disk Alert: /"))
	assert.Equal(t, []string{metrics.AlertSent}, h.recorder.outcomes)
}

func TestScheduler_BreachWithinCooldownIsSuppressed(t *testing.T) {
	h := newHarness(t, fixedUsage(breachingUsage), rootWatch)

	require.Equal(t, OutcomeAlertSent, h.tick(t))
	h.logs.Reset()

	h.advance(30 * time.Minute)
	assert.Equal(t, OutcomeSuppressed, h.tick(t))

	assert.Len(t, h.notifier.alerts(), 1)
	assert.Zero(t, countMessages(h.logs, logrus.InfoLevel, "Alert sent"))
	assert.Equal(t, 1, countMessages(h.logs, logrus.DebugLevel, "Alert suppressed"))
	assert.Equal(t, []string{metrics.AlertSent, metrics.AlertSuppressed}, h.recorder.outcomes)
}

func TestScheduler_BreachAfterCooldownSendsAgain(t *testing.T) {
	h := newHarness(t, fixedUsage(breachingUsage), rootWatch)

	require.Equal(t, OutcomeAlertSent, h.tick(t))
	h.advance(time.Hour)
	assert.Equal(t, OutcomeAlertSent, h.tick(t))
	assert.Len(t, h.notifier.alerts(), 2)

	last, _ := h.scheduler.tasks[0].gate.LastAlertAt()
	assert.Equal(t, h.clock.Now(), last)
}

func TestScheduler_SampleErrorNeverAlerts(t *testing.T) {
	sampler := disk.SamplerFunc(func(_ context.Context, path string) (disk.Usage, error) {
		return disk.Usage{}, &disk.SampleError{Path: path, Cause: "df failed", Err: errors.New("exit status 1")}
	})
	h := newHarness(t, sampler, rootWatch)

	assert.Equal(t, OutcomeSampleFailed, h.tick(t))
	assert.Empty(t, h.notifier.alerts())
	assert.Equal(t, 1, countMessages(h.logs, logrus.ErrorLevel, "Error monitoring /"))
	assert.Equal(t, 1, h.recorder.failures)
	assert.Zero(t, h.recorder.samples)

	_, fired := h.scheduler.tasks[0].gate.LastAlertAt()
	assert.False(t, fired)
}

func TestScheduler_HealthyMountIsQuiet(t *testing.T) {
	h := newHarness(t, fixedUsage(healthyUsage), rootWatch)

	assert.Equal(t, OutcomeOK, h.tick(t))
	assert.Empty(t, h.notifier.alerts())
	assert.Zero(t, countMessages(h.logs, logrus.InfoLevel, ""))
	assert.Equal(t, 1, h.recorder.samples)
	assert.Empty(t, h.recorder.outcomes)
}

func TestScheduler_FailedDeliveryKeepsGateOpen(t *testing.T) {
	h := newHarness(t, fixedUsage(breachingUsage), rootWatch)
	h.notifier.setErr(errors.New("connection refused"))

	assert.Equal(t, OutcomeAlertFailed, h.tick(t))
	assert.Equal(t, 1, countMessages(h.logs, logrus.ErrorLevel, "Failed to send alert"))
	_, fired := h.scheduler.tasks[0].gate.LastAlertAt()
	assert.False(t, fired)

	// The very next breach tries again.
	h.notifier.setErr(nil)
	h.advance(time.Minute)
	assert.Equal(t, OutcomeAlertSent, h.tick(t))
	assert.Equal(t, []string{metrics.AlertFailed, metrics.AlertSent}, h.recorder.outcomes)
}

func TestScheduler_RecoveryDoesNotResetCooldown(t *testing.T) {
	var usage atomic.Pointer[disk.Usage]
	usage.Store(&breachingUsage)
	sampler := disk.SamplerFunc(func(context.Context, string) (disk.Usage, error) {
		return *usage.Load(), nil
	})
	h := newHarness(t, sampler, rootWatch)

	require.Equal(t, OutcomeAlertSent, h.tick(t))

	usage.Store(&healthyUsage)
	h.advance(10 * time.Minute)
	require.Equal(t, OutcomeOK, h.tick(t))

	usage.Store(&breachingUsage)
	h.advance(10 * time.Minute)
	assert.Equal(t, OutcomeSuppressed, h.tick(t))
	assert.Len(t, h.notifier.alerts(), 1)
}

func TestScheduler_OverlappingChecksAreSkipped(t *testing.T) {
	entered, release := make(chan struct{}), make(chan struct{})
	sampler := disk.SamplerFunc(func(context.Context, string) (disk.Usage, error) {
		close(entered)
		<-release
		return healthyUsage, nil
	})
	h := newHarness(t, sampler, rootWatch)

	first := make(chan Outcome, 1)
	go func() { first <- h.scheduler.check(context.TODO(), h.scheduler.tasks[0]) }()
	<-entered

	assert.Equal(t, OutcomeSkipped, h.tick(t))

	close(release)
	assert.Equal(t, OutcomeOK, <-first)
}

func TestScheduler_WatchesAreIndependent(t *testing.T) {
	sampler := disk.SamplerFunc(func(_ context.Context, path string) (disk.Usage, error) {
		switch path {
		case "/":
			return breachingUsage, nil
		case "/data":
			return healthyUsage, nil
		default:
			return disk.Usage{}, &disk.SampleError{Path: path, Cause: "no such mount"}
		}
	})

	data := rootWatch
	data.Path = "/data"
	missing := rootWatch
	missing.Path = "/missing"

	h := newHarness(t, sampler, rootWatch, data, missing)

	outcomes := h.scheduler.CheckAll(context.TODO())
	assert.Equal(t, []Outcome{OutcomeAlertSent, OutcomeOK, OutcomeSampleFailed}, outcomes)

	h.advance(time.Minute)
	outcomes = h.scheduler.CheckAll(context.TODO())
	assert.Equal(t, []Outcome{OutcomeSuppressed, OutcomeOK, OutcomeSampleFailed}, outcomes)
	assert.Len(t, h.notifier.alerts(), 1)
}

func TestScheduler_PercentBreachAlertsWithAmpleFreeSpace(t *testing.T) {
	watch := MountWatch{
		Path:           "/data",
		MaxPercentUsed: 90,
		MinFreeBytes:   5 * bytesize.GiB,
		MinFree:        "5GB",
		Schedule:       "@every 1m",
		AlertCooldown:  10 * time.Minute,
	}
	h := newHarness(t, fixedUsage(disk.Usage{PercentUsed: 95, FreeBytes: 10_000_000_000}), watch)

	assert.Equal(t, OutcomeAlertSent, h.tick(t))

	h.logs.Reset()
	h.advance(2 * time.Minute)
	assert.Equal(t, OutcomeSuppressed, h.tick(t))
	assert.Zero(t, countMessages(h.logs, logrus.InfoLevel, "Alert sent"))

	alerts := h.notifier.alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Disk Alert: /data", alerts[0].subject)
	assert.Contains(t, alerts[0].body, "Current Free Space: 9.3 GiB")
}

func TestScheduler_IndependentCooldowns(t *testing.T) {
	short := rootWatch
	short.Path, short.Schedule, short.AlertCooldown = "/var", "@every 1m", 5*time.Minute
	long := rootWatch
	long.Path, long.Schedule, long.AlertCooldown = "/home", "@every 10m", time.Hour

	h := newHarness(t, fixedUsage(breachingUsage), short, long)

	assert.Equal(t, []Outcome{OutcomeAlertSent, OutcomeAlertSent}, h.scheduler.CheckAll(context.TODO()))

	h.advance(5 * time.Minute)
	assert.Equal(t, []Outcome{OutcomeAlertSent, OutcomeSuppressed}, h.scheduler.CheckAll(context.TODO()))

	var subjects []string
	for _, alert := range h.notifier.alerts() {
		subjects = append(subjects, alert.subject)
	}
	assert.ElementsMatch(t, []string{"Disk Alert: /var", "Disk Alert: /home", "Disk Alert: /var"}, subjects)
}

func TestScheduler_SampleTimeout(t *testing.T) {
	sampler := disk.SamplerFunc(func(ctx context.Context, path string) (disk.Usage, error) {
		<-ctx.Done()
		return disk.Usage{}, &disk.SampleError{Path: path, Cause: "df failed", Err: ctx.Err()}
	})

	logger, _ := test.NewNullLogger()
	notifier := &fakeNotifier{}
	s := New([]MountWatch{rootWatch}, sampler, notifier,
		WithLogger(logrus.NewEntry(logger)),
		WithTimeouts(10*time.Millisecond, 0),
	)

	assert.Equal(t, []Outcome{OutcomeSampleFailed}, s.CheckAll(context.TODO()))
	assert.Equal(t, DefaultSendTimeout, s.sendTimeout)
}

func TestScheduler_StartStop(t *testing.T) {
	t.Run("rejects_invalid_schedules", func(t *testing.T) {
		broken := rootWatch
		broken.Path, broken.Schedule = "/broken", "every now and then"
		h := newHarness(t, fixedUsage(healthyUsage), rootWatch, broken)

		err := h.scheduler.Start(context.TODO())
		assert.ErrorContains(t, err, "/broken")
		assert.Zero(t, countMessages(h.logs, logrus.InfoLevel, "Starting disk monitoring"))
		h.scheduler.Stop()
	})

	t.Run("rejects_second_start", func(t *testing.T) {
		h := newHarness(t, fixedUsage(healthyUsage), rootWatch)

		require.NoError(t, h.scheduler.Start(context.TODO()))
		t.Cleanup(h.scheduler.Stop)
		assert.Error(t, h.scheduler.Start(context.TODO()))
		assert.Equal(t, 1, countMessages(h.logs, logrus.InfoLevel, "Starting disk monitoring"))
	})

	t.Run("stop_without_start", func(t *testing.T) {
		h := newHarness(t, fixedUsage(healthyUsage), rootWatch)
		assert.NotPanics(t, h.scheduler.Stop)
	})

	t.Run("ticks_and_alerts", func(t *testing.T) {
		watch := rootWatch
		watch.Schedule = "@every 1s"

		var samples atomic.Int32
		sampler := disk.SamplerFunc(func(context.Context, string) (disk.Usage, error) {
			samples.Add(1)
			return breachingUsage, nil
		})
		h := newHarness(t, sampler, watch)

		require.NoError(t, h.scheduler.Start(context.TODO()))
		require.Eventually(t, func() bool {
			return samples.Load() >= 2
		}, 10*time.Second, 50*time.Millisecond)
		h.scheduler.Stop()

		// The fake clock doesn't move, so only the first breach is alerted.
		assert.Len(t, h.notifier.alerts(), 1)
	})

	t.Run("stop_cancels_running_checks", func(t *testing.T) {
		watch := rootWatch
		watch.Schedule = "@every 1s"

		entered, returned := make(chan struct{}), make(chan struct{})
		var enter, ret sync.Once
		sampler := disk.SamplerFunc(func(ctx context.Context, path string) (disk.Usage, error) {
			enter.Do(func() { close(entered) })
			<-ctx.Done()
			ret.Do(func() { close(returned) })
			return disk.Usage{}, &disk.SampleError{Path: path, Cause: "canceled", Err: ctx.Err()}
		})
		h := newHarness(t, sampler, watch)

		require.NoError(t, h.scheduler.Start(context.TODO()))
		<-entered
		h.scheduler.Stop()

		select {
		case <-returned:
		case <-time.After(10 * time.Second):
			require.Fail(t, "check wasn't canceled")
		}
	})
}
