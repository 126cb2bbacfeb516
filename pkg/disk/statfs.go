// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package disk

import "math/bits"

// StatfsSampler samples mount points by querying the filesystem statistics
// directly via statfs(2), without spawning any processes.
type StatfsSampler struct{}

var _ Sampler = (*StatfsSampler)(nil)

// percentUsed computes the used percentage the same way df does: the used
// blocks relative to the blocks usable by unprivileged users, rounded up.
func percentUsed(used, avail uint64) int {
	total, carry := bits.Add64(used, avail, 0)
	if total == 0 && carry == 0 {
		return 0
	}
	if carry != 0 {
		// Scale both down so that the sum fits into 64 bits.
		used, total = used/2, used/2+avail/2
	}
	hi, lo := bits.Mul64(used, 100)
	percent, rem := bits.Div64(hi, lo, total)
	if rem != 0 {
		percent++
	}
	return int(percent)
}
