// Package status provides a thread-safe status tracker for the
// serial-relay daemon. It is read by HTTP handlers and feeds the MQTT
// system event payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/serial-relay/internal/relay"
)

// NetworkInfo contains network state read from the pi-helper env file.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Device      string
	Baud        int
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Polarity    string
	LEDPin      int
}

// Counts tracks protocol and transition totals since startup.
type Counts struct {
	Pings    int
	Armed    int
	Busy     int
	Errors   int
	RelayOn  int
	RelayOff int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Channels      []relay.ChannelStatus
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets channel states and counters. Called from the run loop on
// every tick; channels must be a fresh snapshot, never the scheduler's
// own storage.
func (t *Tracker) Update(channels []relay.ChannelStatus, counts Counts) {
	t.mu.Lock()
	t.snap.Channels = channels
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
