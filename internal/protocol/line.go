// Package protocol implements the line-oriented command grammar spoken
// by the host controller. This package is pure: no transport, GPIO, or
// clock dependencies.
package protocol

import "strings"

// MaxLineLen is the longest accepted command line. Anything longer is
// a malformed or runaway line and is discarded wholesale.
const MaxLineLen = 120

// Accumulator assembles incoming bytes into complete command lines.
// The zero value is ready to use.
type Accumulator struct {
	buf        []byte
	discarding bool
}

// Push consumes one byte. When the byte completes a line it returns the
// trimmed line and true; otherwise it returns ("", false) and keeps the
// partial line for the next call. Carriage returns are dropped. A line
// that grows past MaxLineLen is discarded up to and including its
// terminator, yielding no line at all.
func (a *Accumulator) Push(b byte) (string, bool) {
	switch b {
	case '\r':
		return "", false
	case '\n':
		if a.discarding {
			a.discarding = false
			return "", false
		}
		line := strings.TrimSpace(string(a.buf))
		a.buf = a.buf[:0]
		return line, true
	}

	if a.discarding {
		return "", false
	}
	if len(a.buf) >= MaxLineLen {
		a.buf = a.buf[:0]
		a.discarding = true
		return "", false
	}
	a.buf = append(a.buf, b)
	return "", false
}
