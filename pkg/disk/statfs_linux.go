// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package disk

import (
	"context"

	"golang.org/x/sys/unix"
)

// Sample implements [Sampler].
func (*StatfsSampler) Sample(ctx context.Context, path string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, &SampleError{Path: path, Cause: "statfs not attempted", Err: err}
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Usage{}, &SampleError{Path: path, Cause: "statfs failed", Err: err}
	}

	if stat.Bfree > stat.Blocks {
		return Usage{}, &SampleError{Path: path, Cause: "statfs reported more free than total blocks"}
	}

	bsize := uint64(stat.Bsize)
	used := (stat.Blocks - stat.Bfree) * bsize
	avail := stat.Bavail * bsize

	return Usage{PercentUsed: percentUsed(used, avail), FreeBytes: avail}, nil
}
