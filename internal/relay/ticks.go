package relay

import "time"

// Ticks is a monotonic millisecond counter since daemon start. It is
// deliberately 32 bits wide and wraps after about 49.7 days, so deadline
// comparisons must go through Reached/Before rather than plain ordering:
// a deadline armed just before the wrap boundary would otherwise never
// fire once the counter rolls over.
type Ticks uint32

// Add returns t advanced by ms milliseconds, wrapping as the counter does.
func (t Ticks) Add(ms uint32) Ticks {
	return t + Ticks(ms)
}

// Before reports whether t is earlier than u in wrap-safe order.
// Two instants are comparable as long as they are less than half the
// counter period (~24.8 days) apart.
func (t Ticks) Before(u Ticks) bool {
	return int32(t-u) < 0
}

// Reached reports whether deadline d is due at time t, i.e. t >= d in
// wrap-safe order.
func (t Ticks) Reached(d Ticks) bool {
	return int32(t-d) >= 0
}

// TicksAt converts wall-clock time now to Ticks relative to start.
// The truncation to 32 bits is exactly the counter's wrap behavior.
func TicksAt(start, now time.Time) Ticks {
	return Ticks(uint32(now.Sub(start).Milliseconds()))
}
