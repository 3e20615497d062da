package serial

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultBaud matches the host controller's configuration.
const DefaultBaud = 9600

// RealTransport reads and writes a serial device. A pump goroutine
// moves received bytes into a buffered channel so PollByte never
// blocks; the goroutine touches nothing but the channel, which keeps
// the run loop the single writer of all protocol state.
type RealTransport struct {
	device string
	baud   int

	port serial.Port
	in   chan byte

	closeOnce sync.Once
}

// NewRealTransport prepares a transport for the given device. The
// device is not opened until WaitReady.
func NewRealTransport(device string, baud int) *RealTransport {
	return &RealTransport{
		device: device,
		baud:   baud,
		in:     make(chan byte, 512),
	}
}

// WaitReady opens the device, retrying until it appears or ctx expires.
// USB serial adapters can enumerate well after boot, so a missing
// device at startup is normal.
func (t *RealTransport) WaitReady(ctx context.Context) error {
	mode := &serial.Mode{BaudRate: t.baud}
	for {
		port, err := serial.Open(t.device, mode)
		if err == nil {
			t.port = port
			go t.pump()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("open %s: %w (last error: %v)", t.device, ctx.Err(), err)
		case <-time.After(time.Second):
		}
	}
}

// PollByte returns the next received byte if one is buffered.
func (t *RealTransport) PollByte() (byte, bool) {
	select {
	case b := <-t.in:
		return b, true
	default:
		return 0, false
	}
}

// WriteLine sends one reply line followed by the line terminator.
func (t *RealTransport) WriteLine(s string) error {
	if t.port == nil {
		return fmt.Errorf("transport not ready")
	}
	if _, err := t.port.Write([]byte(s + LineTerminator)); err != nil {
		return fmt.Errorf("write %s: %w", t.device, err)
	}
	return nil
}

// Close closes the device. The pump goroutine exits on the resulting
// read error.
func (t *RealTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.port != nil {
			err = t.port.Close()
		}
	})
	return err
}

func (t *RealTransport) pump() {
	buf := make([]byte, 64)
	for {
		n, err := t.port.Read(buf)
		if err != nil {
			log.Printf("serial: read %s: %v", t.device, err)
			return
		}
		for _, b := range buf[:n] {
			select {
			case t.in <- b:
			default:
				// Receiver stalled; dropping is better than blocking
				// the pump behind a full channel.
			}
		}
	}
}
