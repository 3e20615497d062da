// Package dispatch maps parsed commands onto scheduler and GPIO
// actions and produces the single-line reply for each.
package dispatch

import (
	"log"

	"github.com/sweeney/serial-relay/internal/gpio"
	"github.com/sweeney/serial-relay/internal/protocol"
	"github.com/sweeney/serial-relay/internal/relay"
)

// Reply tokens on the wire. The host matches these exactly.
const (
	ReplyPong      = "PONG"
	ReplyOK        = "OK"
	ReplyBusy      = "BUSY"
	ReplyErr       = "ERR"
	ReplyReady     = "READY"
	ReplyHandshake = "This is Arduino"
)

// Dispatcher executes commands against the scheduler and the indicator
// LED.
type Dispatcher struct {
	sched  *relay.Scheduler
	out    gpio.Writer
	ledPin int
}

// New creates a Dispatcher. The LED pin must already be configured as
// an output.
func New(sched *relay.Scheduler, out gpio.Writer, ledPin int) *Dispatcher {
	return &Dispatcher{sched: sched, out: out, ledPin: ledPin}
}

// Handle executes cmd at tick time now and returns the reply line.
// Every command gets exactly one reply; nothing here blocks or halts
// on bad input.
func (d *Dispatcher) Handle(cmd protocol.Command, now relay.Ticks) string {
	switch cmd.Kind {
	case protocol.Ping:
		return ReplyPong

	case protocol.LedOn, protocol.LedOff:
		// The original firmware cannot observe a failed pin write, so
		// the reply stays OK; the failure is only logged.
		if err := d.out.Write(d.ledPin, cmd.Kind == protocol.LedOn); err != nil {
			log.Printf("dispatch: led pin %d: %v", d.ledPin, err)
		}
		return ReplyOK

	case protocol.Status:
		return ReplyReady

	case protocol.Handshake:
		return ReplyHandshake

	case protocol.RelayOn, protocol.RelayOnOverwrite:
		overwrite := cmd.Kind == protocol.RelayOnOverwrite
		switch d.sched.Arm(cmd.Pin, cmd.DelayMs, cmd.DurationMs, overwrite, now) {
		case relay.Armed:
			return ReplyOK
		case relay.Busy:
			return ReplyBusy
		default:
			return ReplyErr
		}
	}

	// Unrecognized and Malformed both answer ERR.
	return ReplyErr
}
