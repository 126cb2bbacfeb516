// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

// Package alert implements the per-mount rate limiting of alerts.
package alert

import "time"

// Gate decides whether an alert may be fired, given the time the previous
// one was fired. A Gate is not safe for concurrent use; it's meant to be
// owned by a single monitoring task.
type Gate struct {
	lastAlertAt time.Time
	fired       bool
}

// ShouldFire reports whether an alert may fire at now. That's the case if no
// alert has been fired yet, or if at least cooldown has elapsed since the
// last one. It has no side effects.
func (g *Gate) ShouldFire(now time.Time, cooldown time.Duration) bool {
	if !g.fired {
		return true
	}
	return now.Sub(g.lastAlertAt) >= cooldown
}

// RecordFired records that an alert has been fired at now. Callers have to
// ensure that successive calls use non-decreasing timestamps.
func (g *Gate) RecordFired(now time.Time) {
	g.lastAlertAt, g.fired = now, true
}

// LastAlertAt returns the time of the last recorded alert, if any.
func (g *Gate) LastAlertAt() (time.Time, bool) {
	return g.lastAlertAt, g.fired
}
