// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logLine struct {
	msg   string
	chunk any
}

func lines(hook *test.Hook) []logLine {
	var lines []logLine
	for _, entry := range hook.AllEntries() {
		lines = append(lines, logLine{entry.Message, entry.Data["chunk"]})
	}
	return lines
}

func TestWriter(t *testing.T) {
	logger, hook := test.NewNullLogger()

	t.Run("lines", func(t *testing.T) {
		hook.Reset()
		w := NewWriter(logrus.NewEntry(logger), logrus.InfoLevel, 64)

		_, err := io.WriteString(w, "Disk / exceeds limits:\n\nMax Fill Level: 90%\r\npartial")
		require.NoError(t, err)
		assert.Equal(t, []logLine{
			{"Disk / exceeds limits:", nil},
			{"", nil},
			{"Max Fill Level: 90%", nil},
		}, lines(hook))

		_, err = io.WriteString(w, " line\n")
		require.NoError(t, err)
		assert.Equal(t, logLine{"partial line", nil}, lines(hook)[3])
	})

	t.Run("flush", func(t *testing.T) {
		hook.Reset()
		w := NewWriter(logrus.NewEntry(logger), logrus.WarnLevel, 64)

		_, err := io.WriteString(w, "unterminated")
		require.NoError(t, err)
		assert.Empty(t, hook.AllEntries())

		w.Flush()
		assert.Equal(t, []logLine{{"unterminated", nil}}, lines(hook))
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

		w.Flush()
		assert.Len(t, hook.AllEntries(), 1)
	})

	t.Run("chunks", func(t *testing.T) {
		hook.Reset()
		w := NewWriter(logrus.NewEntry(logger), logrus.InfoLevel, 4)

		_, err := io.WriteString(w, "abcdefghij\nxy\n")
		require.NoError(t, err)
		assert.Equal(t, []logLine{
			{"abcd", uint(1)},
			{"efgh", uint(2)},
			{"ij", uint(3)},
			{"xy", nil},
		}, lines(hook))
	})

	t.Run("chunks_at_rune_boundaries", func(t *testing.T) {
		hook.Reset()
		w := NewWriter(logrus.NewEntry(logger), logrus.InfoLevel, 4)

		_, err := io.WriteString(w, "abcäd\n")
		require.NoError(t, err)
		assert.Equal(t, []logLine{
			{"abc", uint(1)},
			{"äd", uint(2)},
		}, lines(hook))
	})
}
