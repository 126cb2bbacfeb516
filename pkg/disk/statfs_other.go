//go:build !linux

// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package disk

import (
	"context"
	"errors"
)

// Sample implements [Sampler].
func (*StatfsSampler) Sample(_ context.Context, path string) (Usage, error) {
	return Usage{}, &SampleError{Path: path, Cause: "statfs sampling unsupported on this platform", Err: errors.ErrUnsupported}
}
