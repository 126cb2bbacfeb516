// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package disk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// DfSampler samples mount points by running df(1).
type DfSampler struct {
	// Executable is the df binary to run. Defaults to "df" looked up in PATH.
	Executable string
}

var _ Sampler = (*DfSampler)(nil)

// Sample runs `df -k --output=pcent,avail -- path` and parses its output.
func (s *DfSampler) Sample(ctx context.Context, path string) (Usage, error) {
	executable := s.Executable
	if executable == "" {
		executable = "df"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, executable, "-k", "--output=pcent,avail", "--", path)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	if err := cmd.Run(); err != nil {
		cause := "df failed"
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			cause = fmt.Sprintf("df failed: %s", msg)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return Usage{}, &SampleError{Path: path, Cause: cause, Err: err}
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return Usage{}, &SampleError{Path: path, Cause: fmt.Sprintf("df reported: %s", msg)}
	}

	usage, err := ParseDfOutput(stdout.Bytes())
	if err != nil {
		return Usage{}, &SampleError{Path: path, Cause: "unexpected df output", Err: err}
	}
	return usage, nil
}

// ParseDfOutput parses the output of `df -k --output=pcent,avail`. It expects
// a header line followed by at least one data line, of which the first one
// is used. The available space is reported in KiB and converted to bytes.
func ParseDfOutput(out []byte) (Usage, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return Usage{}, fmt.Errorf("expected a header and a data line, got %q", out)
	}

	fields := strings.Fields(lines[1])
	if len(fields) < 2 {
		return Usage{}, fmt.Errorf("expected two columns, got %q", lines[1])
	}

	percent, err := strconv.Atoi(strings.TrimSuffix(fields[0], "%"))
	if err != nil {
		return Usage{}, fmt.Errorf("invalid percentage used %q: %w", fields[0], err)
	}
	if percent < 0 || percent > 100 {
		return Usage{}, fmt.Errorf("percentage used out of range: %d", percent)
	}

	availKiB, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return Usage{}, fmt.Errorf("invalid available space %q: %w", fields[1], err)
	}
	if availKiB > math.MaxUint64/1024 {
		return Usage{}, errors.New("available space overflows 64 bits")
	}

	return Usage{PercentUsed: percent, FreeBytes: availKiB * 1024}, nil
}
