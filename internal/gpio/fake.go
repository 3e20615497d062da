package gpio

import "fmt"

// FakeWriter is a test double that records GPIO writes.
type FakeWriter struct {
	// Configured lists pins claimed via ConfigureOutput, in order.
	Configured []int

	// Writes is the ordered log of all writes.
	Writes []Write

	// Levels holds the last written level per pin.
	Levels map[int]bool

	// ConfigureError, if set, will be returned by ConfigureOutput.
	ConfigureError error

	// WriteError, if set, will be returned by Write.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// Write records a single pin write.
type Write struct {
	Pin  int
	High bool
}

// NewFakeWriter creates a FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{Levels: make(map[int]bool)}
}

// ConfigureOutput records the pin as configured.
func (f *FakeWriter) ConfigureOutput(pin int) error {
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	f.Configured = append(f.Configured, pin)
	return nil
}

// Write records the write and updates the pin's level.
func (f *FakeWriter) Write(pin int, high bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if !f.isConfigured(pin) {
		return fmt.Errorf("pin %d not configured as output", pin)
	}
	f.Writes = append(f.Writes, Write{Pin: pin, High: high})
	f.Levels[pin] = high
	return nil
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Closed = true
	return nil
}

// WritesFor returns the ordered writes for a single pin.
func (f *FakeWriter) WritesFor(pin int) []Write {
	var out []Write
	for _, w := range f.Writes {
		if w.Pin == pin {
			out = append(out, w)
		}
	}
	return out
}

func (f *FakeWriter) isConfigured(pin int) bool {
	for _, p := range f.Configured {
		if p == pin {
			return true
		}
	}
	return false
}
