// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"bytes"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// Writer implements [io.Writer] by logging every line as a separate entry.
// Lines that don't fit into the buffer are logged in chunks, tagged with a
// "chunk" field.
type Writer struct {
	log   *logrus.Entry
	level logrus.Level
	buf   []byte // len(buf) is the chunk length
	n     int    // number of buffered bytes
	chunk uint   // number of chunks already logged for the current line
}

func NewWriter(log *logrus.Entry, level logrus.Level, chunkLen int) *Writer {
	return &Writer{log: log, level: level, buf: make([]byte, chunkLen)}
}

// Write implements [io.Writer].
func (w *Writer) Write(in []byte) (int, error) {
	for rest := in; len(rest) > 0; {
		copied := copy(w.buf[w.n:], rest)
		rest = rest[copied:]
		w.n += copied

		for {
			idx := bytes.IndexByte(w.buf[:w.n], '\n')
			if idx < 0 {
				break
			}
			w.emit(w.buf[:idx], false)
			w.chunk = 0
			w.n = copy(w.buf, w.buf[idx+1:w.n])
		}

		if w.n == len(w.buf) {
			w.emitChunk()
		}
	}

	return len(in), nil
}

// Flush logs a trailing line that hasn't been terminated by a newline.
func (w *Writer) Flush() {
	if w.n > 0 {
		w.emit(w.buf[:w.n], false)
	}
	w.n, w.chunk = 0, 0
}

// emitChunk logs the buffer up to the last complete UTF-8 rune.
func (w *Writer) emitChunk() {
	end := w.n
	for i := 0; i < utf8.UTFMax && i < w.n; i++ {
		if r, _ := utf8.DecodeLastRune(w.buf[:w.n-i]); r != utf8.RuneError {
			end = w.n - i
			break
		}
	}

	w.emit(w.buf[:end], true)
	w.n = copy(w.buf, w.buf[end:w.n])
}

func (w *Writer) emit(line []byte, partial bool) {
	line = bytes.TrimRight(line, "\r")
	switch {
	case partial:
		w.chunk++
		w.log.WithField("chunk", w.chunk).Logf(w.level, "%s", line)
	case w.chunk > 0:
		if len(line) > 0 {
			w.log.WithField("chunk", w.chunk+1).Logf(w.level, "%s", line)
		}
	default:
		w.log.Logf(w.level, "%s", line)
	}
}
