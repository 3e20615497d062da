// Package relay contains the relay channel table and the non-blocking
// schedule that arms and applies on/off transitions. All schedule state
// is mutated only by Arm (producer) and Tick (consumer), both called
// from the run loop goroutine, so the package needs no locking.
package relay

// Polarity selects which GPIO level energizes a relay coil. It is a
// single build-time choice for the whole board, not per-channel state.
type Polarity int

const (
	// ActiveHigh energizes the coil by driving the pin high.
	ActiveHigh Polarity = iota
	// ActiveLow energizes the coil by driving the pin low. Common for
	// optocoupler relay boards.
	ActiveLow
)

// EnergizedLevel returns the GPIO level that energizes a coil.
func (p Polarity) EnergizedLevel() bool {
	return p == ActiveHigh
}

func (p Polarity) String() string {
	if p == ActiveLow {
		return "active-low"
	}
	return "active-high"
}

// ArmResult is the outcome of an Arm request.
type ArmResult int

const (
	// Armed means the schedule was recorded.
	Armed ArmResult = iota
	// Busy means the channel has an unexpired schedule and the request
	// was rejected without modifying state.
	Busy
	// UnknownPin means no configured channel matches the requested pin.
	UnknownPin
)

func (r ArmResult) String() string {
	switch r {
	case Armed:
		return "ARMED"
	case Busy:
		return "BUSY"
	case UnknownPin:
		return "UNKNOWN_PIN"
	}
	return "INVALID"
}

// channel holds the schedule state for one relay output. Channels are
// created once at startup and never resized.
type channel struct {
	id  int
	pin int

	// Pending transition deadlines. The deadline is meaningful only
	// while the matching pending flag is set.
	onAt       Ticks
	offAt      Ticks
	onPending  bool
	offPending bool

	// Last commanded coil state, for status reporting.
	energized bool
}

// TransitionType identifies an applied output change.
type TransitionType string

const (
	TransitionOn  TransitionType = "RELAY_ON"
	TransitionOff TransitionType = "RELAY_OFF"
)

// Transition records one output change applied by Tick.
type Transition struct {
	ChannelID int
	Pin       int
	Type      TransitionType
	At        Ticks
}

// ChannelStatus is a read-only snapshot of one channel's state.
type ChannelStatus struct {
	ID         int
	Pin        int
	Energized  bool
	PendingOn  bool
	PendingOff bool
}
