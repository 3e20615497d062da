package serial

import "context"

// FakeTransport is a test double fed with scripted input bytes. It
// records every reply line written.
type FakeTransport struct {
	input []byte
	pos   int

	// Lines contains all reply lines written, without terminators.
	Lines []string

	// WaitReadyError, if set, will be returned by WaitReady.
	WaitReadyError error

	// WriteError, if set, will be returned by WriteLine.
	WriteError error

	// ReadyCalls counts WaitReady invocations.
	ReadyCalls int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeTransport creates a FakeTransport with the given scripted input.
func NewFakeTransport(input string) *FakeTransport {
	return &FakeTransport{input: []byte(input)}
}

// Feed appends more scripted input.
func (f *FakeTransport) Feed(s string) {
	f.input = append(f.input, s...)
}

// WaitReady returns immediately.
func (f *FakeTransport) WaitReady(ctx context.Context) error {
	f.ReadyCalls++
	return f.WaitReadyError
}

// PollByte returns the next scripted byte until the input is exhausted.
func (f *FakeTransport) PollByte() (byte, bool) {
	if f.pos >= len(f.input) {
		return 0, false
	}
	b := f.input[f.pos]
	f.pos++
	return b, true
}

// WriteLine records the reply line.
func (f *FakeTransport) WriteLine(s string) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Lines = append(f.Lines, s)
	return nil
}

// Close marks the transport as closed.
func (f *FakeTransport) Close() error {
	f.Closed = true
	return nil
}
