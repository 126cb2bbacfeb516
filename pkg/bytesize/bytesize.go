// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

// Package bytesize converts human readable size strings such as "500MB" or
// "10GB" into exact byte counts. All units are binary multiples.
package bytesize

import (
	"errors"
	"fmt"
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	_ = 1 << (10 * iota)
	KiB
	MiB
	GiB
	TiB
)

// ErrInvalidFormat is returned for size strings that aren't of the form
// <integer><KB|MB|GB|TB>.
var ErrInvalidFormat = errors.New("invalid size format")

var sizePattern = regexp.MustCompile(`^(\d+)([KMGT]B)$`)

var multipliers = map[string]uint64{
	"KB": KiB,
	"MB": MiB,
	"GB": GiB,
	"TB": TiB,
}

// Parse returns the number of bytes denoted by text. The unit suffix is
// matched case-insensitively, surrounding whitespace is ignored.
func Parse(text string) (uint64, error) {
	match := sizePattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(text)))
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}

	value, err := strconv.ParseUint(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidFormat, text, err)
	}

	hi, lo := bits.Mul64(value, multipliers[match[2]])
	if hi != 0 {
		return 0, fmt.Errorf("%w: %q overflows 64 bits", ErrInvalidFormat, text)
	}

	return lo, nil
}

// IEC renders a byte count using binary prefixes, e.g. "9.3 GiB".
func IEC(bytes uint64) string {
	return humanize.IBytes(bytes)
}
