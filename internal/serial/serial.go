// Package serial provides the line-oriented byte transport with
// abstraction for testing. The real implementation wraps a serial
// device; the fake implementation feeds scripted bytes.
package serial

import "context"

// LineTerminator ends every reply on the wire.
const LineTerminator = "\n"

// Transport is the byte stream the command protocol runs over.
type Transport interface {
	// WaitReady blocks until the transport is usable. Called exactly
	// once, before the run loop starts; nothing in the loop may block.
	WaitReady(ctx context.Context) error

	// PollByte returns the next received byte, if one is available.
	// It never blocks.
	PollByte() (byte, bool)

	// WriteLine sends one reply line, appending the line terminator.
	WriteLine(s string) error

	// Close releases the transport.
	Close() error
}
