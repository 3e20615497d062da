package relay

import (
	"fmt"
	"log"

	"github.com/sweeney/serial-relay/internal/gpio"
)

// Scheduler owns the fixed set of relay channels and applies their
// pending transitions through a GPIO writer. One on/off cycle may be
// pending or in flight per channel at a time.
type Scheduler struct {
	channels []channel
	polarity Polarity
	out      gpio.Writer
}

// NewScheduler builds the channel table from the configured pin list.
// Channel ids are the list positions. Pins must be unique.
func NewScheduler(pins []int, polarity Polarity, out gpio.Writer) (*Scheduler, error) {
	if len(pins) == 0 {
		return nil, fmt.Errorf("no relay pins configured")
	}
	seen := make(map[int]bool, len(pins))
	channels := make([]channel, len(pins))
	for i, pin := range pins {
		if seen[pin] {
			return nil, fmt.Errorf("duplicate relay pin %d", pin)
		}
		seen[pin] = true
		channels[i] = channel{id: i, pin: pin}
	}
	return &Scheduler{channels: channels, polarity: polarity, out: out}, nil
}

// Init configures every channel's pin as an output and drives it to the
// de-energized level. Called once before the run loop starts.
func (s *Scheduler) Init() error {
	for i := range s.channels {
		ch := &s.channels[i]
		if err := s.out.ConfigureOutput(ch.pin); err != nil {
			return fmt.Errorf("configure pin %d: %w", ch.pin, err)
		}
		if err := s.out.Write(ch.pin, !s.polarity.EnergizedLevel()); err != nil {
			return fmt.Errorf("reset pin %d: %w", ch.pin, err)
		}
	}
	return nil
}

// Arm schedules one on/off cycle for the channel wired to pin:
// energize at now+delayMs, de-energize at now+delayMs+durationMs.
// Without overwrite the request is rejected as Busy while a previous
// cycle's off deadline is still in the future; the channel being merely
// pending activation counts as busy under the same test, which keeps a
// second future cycle from stacking behind the first. With overwrite
// any prior schedule is replaced unconditionally.
func (s *Scheduler) Arm(pin int, delayMs, durationMs uint32, overwrite bool, now Ticks) ArmResult {
	ch := s.lookup(pin)
	if ch == nil {
		return UnknownPin
	}
	if !overwrite && ch.offPending && now.Before(ch.offAt) {
		return Busy
	}
	ch.onAt = now.Add(delayMs)
	ch.offAt = ch.onAt.Add(durationMs)
	ch.onPending = true
	ch.offPending = true
	return Armed
}

// Tick applies every due transition and returns the transitions that
// fired. For each channel the on deadline is checked before the off
// deadline, so a zero-duration cycle energizes and de-energizes within
// the same tick instead of skipping activation. A fired deadline is
// cleared so it is applied exactly once.
func (s *Scheduler) Tick(now Ticks) []Transition {
	var fired []Transition
	for i := range s.channels {
		ch := &s.channels[i]
		if ch.onPending && now.Reached(ch.onAt) {
			ch.onPending = false
			s.drive(ch, true)
			fired = append(fired, Transition{ChannelID: ch.id, Pin: ch.pin, Type: TransitionOn, At: now})
		}
		if ch.offPending && now.Reached(ch.offAt) {
			ch.offPending = false
			s.drive(ch, false)
			fired = append(fired, Transition{ChannelID: ch.id, Pin: ch.pin, Type: TransitionOff, At: now})
		}
	}
	return fired
}

// AllOff drives every channel to the de-energized level and clears any
// pending schedule. Called at shutdown.
func (s *Scheduler) AllOff() {
	for i := range s.channels {
		ch := &s.channels[i]
		ch.onPending = false
		ch.offPending = false
		s.drive(ch, false)
	}
}

// Snapshot returns a copy of every channel's state for status reporting.
func (s *Scheduler) Snapshot() []ChannelStatus {
	out := make([]ChannelStatus, len(s.channels))
	for i := range s.channels {
		ch := &s.channels[i]
		out[i] = ChannelStatus{
			ID:         ch.id,
			Pin:        ch.pin,
			Energized:  ch.energized,
			PendingOn:  ch.onPending,
			PendingOff: ch.offPending,
		}
	}
	return out
}

func (s *Scheduler) lookup(pin int) *channel {
	for i := range s.channels {
		if s.channels[i].pin == pin {
			return &s.channels[i]
		}
	}
	return nil
}

// drive writes the coil state, translating energized through polarity.
// A write failure leaves the coil as-is; the schedule still completes,
// since there is no sane retry for a dead GPIO line.
func (s *Scheduler) drive(ch *channel, energize bool) {
	level := s.polarity.EnergizedLevel()
	if !energize {
		level = !level
	}
	ch.energized = energize
	if err := s.out.Write(ch.pin, level); err != nil {
		log.Printf("relay: channel %d pin %d: %v", ch.id, ch.pin, err)
	}
}
