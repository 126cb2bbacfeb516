// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron"

	"github.com/k0sproject/diskwatch/pkg/bytesize"
	"github.com/k0sproject/diskwatch/pkg/disk"
)

// MountWatch describes the thresholds and schedule of a monitored mount point.
type MountWatch struct {
	// Path is handed to the sampler as is.
	Path string
	// MaxPercentUsed is the highest acceptable used percentage, in [0, 100].
	MaxPercentUsed int
	// MinFreeBytes is the lowest acceptable amount of free space.
	MinFreeBytes uint64
	// MinFree is the human readable form of MinFreeBytes, as configured.
	MinFree string
	// Schedule is a cron expression controlling how often to sample.
	Schedule string
	// AlertCooldown is the minimum time between two alerts.
	AlertCooldown time.Duration
}

// Breached reports whether usage violates any of the watch's thresholds.
func (w *MountWatch) Breached(usage disk.Usage) bool {
	return usage.PercentUsed > w.MaxPercentUsed || usage.FreeBytes < w.MinFreeBytes
}

func (w *MountWatch) minFreeString() string {
	if w.MinFree != "" {
		return w.MinFree
	}
	return bytesize.IEC(w.MinFreeBytes)
}

// FormatAlert renders the subject and body of an alert for a breached watch.
func FormatAlert(w *MountWatch, usage disk.Usage) (subject, body string) {
	subject = "Disk Alert: " + w.Path

	var b strings.Builder
	fmt.Fprintf(&b, "Disk %s exceeds limits:\n\n", w.Path)
	fmt.Fprintf(&b, "Max Fill Level: %d%%\n", w.MaxPercentUsed)
	fmt.Fprintf(&b, "Current Fill Level: %d%%\n", usage.PercentUsed)
	fmt.Fprintf(&b, "Min Free Space: %s\n", w.minFreeString())
	fmt.Fprintf(&b, "Current Free Space: %s", bytesize.IEC(usage.FreeBytes))

	return subject, b.String()
}

// ParseSchedule parses a cron expression. Five fields are interpreted as a
// standard crontab spec, six fields as a spec with a leading seconds field.
// Descriptors like "@hourly" or "@every 5m" are accepted, too.
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	if !strings.HasPrefix(spec, "@") && len(strings.Fields(spec)) == 5 {
		return cron.ParseStandard(spec)
	}

	return cron.Parse(spec)
}
