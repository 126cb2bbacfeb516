// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

// Package disk measures filesystem capacity for mount points.
package disk

import (
	"context"
	"fmt"
)

// Usage is a single capacity measurement of a mount point.
type Usage struct {
	// PercentUsed is the used capacity as a whole percentage in [0, 100].
	PercentUsed int
	// FreeBytes is the space available to unprivileged users, in bytes.
	FreeBytes uint64
}

// Sampler measures the current capacity of a mount point.
type Sampler interface {
	// Sample returns the current usage of the filesystem at path. All errors
	// returned are of type *SampleError.
	Sample(ctx context.Context, path string) (Usage, error)
}

// SamplerFunc adapts an ordinary function to the Sampler interface.
type SamplerFunc func(ctx context.Context, path string) (Usage, error)

// Sample implements [Sampler].
func (f SamplerFunc) Sample(ctx context.Context, path string) (Usage, error) {
	return f(ctx, path)
}

// SampleError indicates that the capacity of a mount point couldn't be
// measured at all. It is never used to signal threshold breaches.
type SampleError struct {
	Path  string
	Cause string
	Err   error
}

func (e *SampleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to sample %s: %s: %v", e.Path, e.Cause, e.Err)
	}
	return fmt.Sprintf("failed to sample %s: %s", e.Path, e.Cause)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}
