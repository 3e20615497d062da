package relay

import (
	"math"
	"testing"

	"github.com/sweeney/serial-relay/internal/gpio"
)

func newTestScheduler(t *testing.T, pins []int, polarity Polarity) (*Scheduler, *gpio.FakeWriter) {
	t.Helper()
	out := gpio.NewFakeWriter()
	s, err := NewScheduler(pins, polarity, out)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s, out
}

func TestNewSchedulerValidation(t *testing.T) {
	out := gpio.NewFakeWriter()
	if _, err := NewScheduler(nil, ActiveHigh, out); err == nil {
		t.Error("expected error for empty pin list")
	}
	if _, err := NewScheduler([]int{5, 6, 5}, ActiveHigh, out); err == nil {
		t.Error("expected error for duplicate pin")
	}
}

func TestInitDrivesDeEnergized(t *testing.T) {
	_, out := newTestScheduler(t, []int{5, 6}, ActiveHigh)
	if len(out.Configured) != 2 {
		t.Fatalf("expected 2 configured pins, got %d", len(out.Configured))
	}
	// Active-high: de-energized is low.
	if out.Levels[5] != false || out.Levels[6] != false {
		t.Errorf("expected both pins low, got 5=%v 6=%v", out.Levels[5], out.Levels[6])
	}

	_, out = newTestScheduler(t, []int{5}, ActiveLow)
	// Active-low: de-energized is high.
	if out.Levels[5] != true {
		t.Errorf("active-low: expected pin 5 high, got %v", out.Levels[5])
	}
}

func TestArmUnknownPin(t *testing.T) {
	s, out := newTestScheduler(t, []int{5, 6}, ActiveHigh)
	writes := len(out.Writes)

	if got := s.Arm(99, 10, 10, false, 0); got != UnknownPin {
		t.Fatalf("Arm(99): got %v, want UnknownPin", got)
	}
	if len(out.Writes) != writes {
		t.Error("unknown pin arm must not touch GPIO")
	}
	for _, ch := range s.Snapshot() {
		if ch.PendingOn || ch.PendingOff {
			t.Errorf("channel %d mutated by unknown-pin arm", ch.ID)
		}
	}
}

func TestArmBusySemantics(t *testing.T) {
	s, _ := newTestScheduler(t, []int{5}, ActiveHigh)

	if got := s.Arm(5, 100, 200, false, 0); got != Armed {
		t.Fatalf("first arm: got %v, want Armed", got)
	}
	ch := s.channels[0]

	// Second non-overwrite arm before off_at elapses is rejected and
	// leaves the schedule untouched.
	if got := s.Arm(5, 1, 1, false, 50); got != Busy {
		t.Errorf("second arm: got %v, want Busy", got)
	}
	if s.channels[0] != ch {
		t.Errorf("busy arm mutated channel: %+v -> %+v", ch, s.channels[0])
	}

	// Still busy after the on deadline fires, while off is pending.
	s.Tick(100)
	if got := s.Arm(5, 1, 1, false, 150); got != Busy {
		t.Errorf("arm while energized: got %v, want Busy", got)
	}

	// Once the off deadline has passed the channel is free again.
	if got := s.Arm(5, 1, 1, false, 300); got != Armed {
		t.Errorf("arm after cycle: got %v, want Armed", got)
	}
}

func TestArmOverwriteNeverBusy(t *testing.T) {
	s, _ := newTestScheduler(t, []int{5}, ActiveHigh)

	if got := s.Arm(5, 100, 200, false, 0); got != Armed {
		t.Fatalf("first arm: got %v, want Armed", got)
	}
	if got := s.Arm(5, 10, 20, true, 50); got != Armed {
		t.Fatalf("overwrite arm: got %v, want Armed", got)
	}
	ch := s.channels[0]
	if ch.onAt != 60 || ch.offAt != 80 {
		t.Errorf("overwrite deadlines: got on=%d off=%d, want on=60 off=80", ch.onAt, ch.offAt)
	}
	if got := s.Arm(99, 10, 20, true, 50); got != UnknownPin {
		t.Errorf("overwrite unknown pin: got %v, want UnknownPin", got)
	}
}

func TestTickAppliesTransitionsOnce(t *testing.T) {
	s, out := newTestScheduler(t, []int{5}, ActiveHigh)
	initWrites := len(out.Writes)

	s.Arm(5, 100, 200, false, 0)

	// Nothing due yet.
	if fired := s.Tick(50); len(fired) != 0 {
		t.Fatalf("tick@50: expected no transitions, got %d", len(fired))
	}

	// On deadline fires exactly once.
	fired := s.Tick(100)
	if len(fired) != 1 || fired[0].Type != TransitionOn || fired[0].Pin != 5 {
		t.Fatalf("tick@100: got %+v, want one RELAY_ON for pin 5", fired)
	}
	if out.Levels[5] != true {
		t.Error("tick@100: pin 5 should be high")
	}
	if fired := s.Tick(150); len(fired) != 0 {
		t.Fatalf("tick@150: expected no transitions, got %d", len(fired))
	}

	// Off deadline fires exactly once.
	fired = s.Tick(300)
	if len(fired) != 1 || fired[0].Type != TransitionOff {
		t.Fatalf("tick@300: got %+v, want one RELAY_OFF", fired)
	}
	if out.Levels[5] != false {
		t.Error("tick@300: pin 5 should be low")
	}

	// Steady state: no further writes.
	writes := len(out.Writes)
	for now := Ticks(301); now < 400; now += 10 {
		if fired := s.Tick(now); len(fired) != 0 {
			t.Fatalf("tick@%d: unexpected transitions %+v", now, fired)
		}
	}
	if len(out.Writes) != writes {
		t.Errorf("steady state wrote GPIO: %d -> %d", writes, len(out.Writes))
	}
	if len(out.Writes)-initWrites != 2 {
		t.Errorf("expected exactly 2 writes for the cycle, got %d", len(out.Writes)-initWrites)
	}
}

func TestZeroDurationFiresBothInOneTick(t *testing.T) {
	s, out := newTestScheduler(t, []int{13}, ActiveHigh)

	if got := s.Arm(13, 0, 0, false, 1000); got != Armed {
		t.Fatalf("arm: got %v, want Armed", got)
	}

	fired := s.Tick(1000)
	if len(fired) != 2 {
		t.Fatalf("expected on+off in one tick, got %+v", fired)
	}
	if fired[0].Type != TransitionOn || fired[1].Type != TransitionOff {
		t.Errorf("transition order: got %s then %s", fired[0].Type, fired[1].Type)
	}

	cycle := out.WritesFor(13)
	// Init low, then high, then low.
	if len(cycle) != 3 || cycle[1].High != true || cycle[2].High != false {
		t.Errorf("pin 13 writes: got %+v", cycle)
	}

	if fired := s.Tick(1001); len(fired) != 0 {
		t.Errorf("second tick: expected no transitions, got %+v", fired)
	}
	snap := s.Snapshot()[0]
	if snap.PendingOn || snap.PendingOff {
		t.Errorf("deadlines not cleared: %+v", snap)
	}
	if snap.Energized {
		t.Error("channel should be de-energized after the cycle")
	}
}

func TestActiveLowPolarity(t *testing.T) {
	s, out := newTestScheduler(t, []int{5}, ActiveLow)

	s.Arm(5, 0, 100, false, 0)
	s.Tick(0)
	// Energize drives the pin low.
	if out.Levels[5] != false {
		t.Error("active-low energize: pin should be low")
	}
	s.Tick(100)
	if out.Levels[5] != true {
		t.Error("active-low de-energize: pin should be high")
	}
}

func TestArmAcrossWrapBoundary(t *testing.T) {
	s, out := newTestScheduler(t, []int{5}, ActiveHigh)

	// Deadlines straddle the counter wrap: on fires before the wrap,
	// off after.
	now := Ticks(math.MaxUint32 - 50)
	if got := s.Arm(5, 10, 100, false, now); got != Armed {
		t.Fatalf("arm near wrap: got %v, want Armed", got)
	}

	// Not busy at a wrapped 'now' once the off deadline has passed,
	// busy before it.
	if got := s.Arm(5, 1, 1, false, now.Add(30)); got != Busy {
		t.Errorf("arm before wrapped off deadline: got %v, want Busy", got)
	}

	fired := s.Tick(now.Add(10))
	if len(fired) != 1 || fired[0].Type != TransitionOn {
		t.Fatalf("on at wrap boundary: got %+v", fired)
	}

	// now has wrapped past zero; the off deadline (also wrapped) is due.
	fired = s.Tick(now.Add(120))
	if len(fired) != 1 || fired[0].Type != TransitionOff {
		t.Fatalf("off past wrap boundary: got %+v", fired)
	}
	if out.Levels[5] != false {
		t.Error("pin should be low after wrapped cycle")
	}
}

func TestAllOff(t *testing.T) {
	s, out := newTestScheduler(t, []int{5, 6}, ActiveHigh)

	s.Arm(5, 0, 1000, false, 0)
	s.Tick(0) // pin 5 energized, off pending
	s.Arm(6, 500, 1000, false, 0)

	s.AllOff()
	if out.Levels[5] != false || out.Levels[6] != false {
		t.Errorf("expected both pins low, got 5=%v 6=%v", out.Levels[5], out.Levels[6])
	}
	for _, ch := range s.Snapshot() {
		if ch.PendingOn || ch.PendingOff || ch.Energized {
			t.Errorf("channel %d not cleared: %+v", ch.ID, ch)
		}
	}
	if fired := s.Tick(2000); len(fired) != 0 {
		t.Errorf("tick after AllOff fired %+v", fired)
	}
}

func TestSnapshot(t *testing.T) {
	s, _ := newTestScheduler(t, []int{5, 6}, ActiveHigh)

	s.Arm(6, 100, 100, false, 0)
	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(snap))
	}
	if snap[0].ID != 0 || snap[0].Pin != 5 || snap[0].PendingOn {
		t.Errorf("channel 0: %+v", snap[0])
	}
	if snap[1].ID != 1 || snap[1].Pin != 6 || !snap[1].PendingOn || !snap[1].PendingOff {
		t.Errorf("channel 1: %+v", snap[1])
	}

	// Snapshot is a copy; mutating it must not touch the scheduler.
	snap[1].PendingOn = false
	if !s.channels[1].onPending {
		t.Error("snapshot aliases scheduler state")
	}
}
