package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/serial-relay/internal/relay"
)

func testConfig() Config {
	return Config{
		Device:      "/dev/ttyACM0",
		Baud:        9600,
		PollMs:      10,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
		Polarity:    "active-low",
		LEDPin:      21,
	}
}

func TestTrackerSnapshot(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("start time: got %v", snap.StartTime)
	}
	if snap.Config.Device != "/dev/ttyACM0" {
		t.Errorf("config device: got %q", snap.Config.Device)
	}
	if snap.Now.IsZero() {
		t.Error("snapshot Now should be set")
	}
	if len(snap.Channels) != 0 {
		t.Errorf("expected no channels before Update, got %d", len(snap.Channels))
	}
}

func TestTrackerUpdate(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())

	channels := []relay.ChannelStatus{
		{ID: 0, Pin: 5, Energized: true, PendingOff: true},
		{ID: 1, Pin: 6},
	}
	counts := Counts{Pings: 3, Armed: 2, Busy: 1, RelayOn: 2, RelayOff: 1}
	tr.Update(channels, counts)

	snap := tr.Snapshot()
	if len(snap.Channels) != 2 {
		t.Fatalf("channels: got %d, want 2", len(snap.Channels))
	}
	if !snap.Channels[0].Energized || !snap.Channels[0].PendingOff {
		t.Errorf("channel 0: got %+v", snap.Channels[0])
	}
	if snap.Counts != counts {
		t.Errorf("counts: got %+v, want %+v", snap.Counts, counts)
	}
}

func TestTrackerSetters(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("MQTTConnected not set")
	}

	tr.SetNetwork(&NetworkInfo{Status: "connected", IP: "192.168.1.50"})
	snap := tr.Snapshot()
	if snap.Network == nil || snap.Network.IP != "192.168.1.50" {
		t.Errorf("network: got %+v", snap.Network)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if got := snap.Uptime(); got != 90*time.Second {
		t.Errorf("uptime: got %v, want 90s", got)
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Channels: []relay.ChannelStatus{
			{ID: 0, Pin: 5, Energized: true, PendingOff: true},
			{ID: 1, Pin: 13},
		},
		Counts:        Counts{Armed: 4, Busy: 1},
		StartTime:     start,
		Now:           start.Add(time.Hour),
		MQTTConnected: true,
		Config:        testConfig(),
	}

	var decoded StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	inner := decoded.Status
	if inner.Event != "" || inner.Reason != "" {
		t.Errorf("web JSON should carry no event/reason: %+v", inner)
	}
	if len(inner.Channels) != 2 {
		t.Fatalf("channels: got %d, want 2", len(inner.Channels))
	}
	if inner.Channels[0].State != "ON" || !inner.Channels[0].PendingOff {
		t.Errorf("channel 0: got %+v", inner.Channels[0])
	}
	if inner.Channels[1].State != "OFF" {
		t.Errorf("channel 1: got %+v", inner.Channels[1])
	}
	if inner.UptimeSeconds != 3600 {
		t.Errorf("uptime: got %d, want 3600", inner.UptimeSeconds)
	}
	if !inner.MQTT.Connected || inner.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("mqtt: got %+v", inner.MQTT)
	}
	if inner.Counts.Armed != 4 || inner.Counts.Busy != 1 {
		t.Errorf("counts: got %+v", inner.Counts)
	}
	if inner.Config.Polarity != "active-low" {
		t.Errorf("config polarity: got %q", inner.Config.Polarity)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Now(),
		Now:       time.Now(),
		Config:    testConfig(),
		Network:   &NetworkInfo{Status: "connected", Type: "wifi"},
	}

	var decoded StatusJSON
	if err := json.Unmarshal(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Status.Event != "SHUTDOWN" || decoded.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %+v", decoded.Status)
	}
	if decoded.Status.Network == nil || decoded.Status.Network.Type != "wifi" {
		t.Errorf("network: got %+v", decoded.Status.Network)
	}
}
