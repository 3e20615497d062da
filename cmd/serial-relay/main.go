// Command serial-relay exposes the line-oriented relay-control protocol
// on a serial device and drives relay coils through GPIO.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/serial-relay/internal/dispatch"
	"github.com/sweeney/serial-relay/internal/gpio"
	"github.com/sweeney/serial-relay/internal/mqtt"
	"github.com/sweeney/serial-relay/internal/protocol"
	"github.com/sweeney/serial-relay/internal/relay"
	"github.com/sweeney/serial-relay/internal/serial"
	"github.com/sweeney/serial-relay/internal/status"
	"github.com/sweeney/serial-relay/internal/web"
)

func main() {
	device := flag.String("device", "/dev/ttyGS0", "Serial device to serve the protocol on")
	baud := flag.Int("baud", serial.DefaultBaud, "Serial baud rate")
	poll := flag.Duration("poll", 10*time.Millisecond, "Run loop interval")
	pinList := flag.String("pins", pinsString(gpio.DefaultRelayPins), "Comma-separated relay pins (BCM)")
	ledPin := flag.Int("led-pin", gpio.DefaultLEDPin, "Indicator LED pin (BCM)")
	activeLow := flag.Bool("active-low", false, "Relay board energizes on a low level")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", `MQTT broker address ("off" to disable)`)
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	readyTimeout := flag.Duration("ready-timeout", 30*time.Second, "How long to wait for the serial device at startup")

	flag.Parse()

	pins, err := parsePins(*pinList)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	polarity := relay.ActiveHigh
	if *activeLow {
		polarity = relay.ActiveLow
	}

	if err := run(*device, *baud, *poll, pins, *ledPin, polarity, *broker, *heartbeat, *httpAddr, *readyTimeout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(device string, baud int, poll time.Duration, pins []int, ledPin int, polarity relay.Polarity, broker string, heartbeat time.Duration, httpAddr string, readyTimeout time.Duration) error {
	// Startup gate: wait for the serial device before anything else.
	// This is the only blocking step; the loop itself never blocks.
	transport := serial.NewRealTransport(device, baud)
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	log.Printf("waiting for serial device %s", device)
	if err := transport.WaitReady(ctx); err != nil {
		return fmt.Errorf("serial not ready: %w", err)
	}
	defer transport.Close()

	// Initialize GPIO and drive every relay to its resting level.
	writer, err := gpio.NewRealWriter()
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer writer.Close()

	sched, err := relay.NewScheduler(pins, polarity, writer)
	if err != nil {
		return err
	}
	if err := sched.Init(); err != nil {
		return fmt.Errorf("init relays: %w", err)
	}
	if err := writer.ConfigureOutput(ledPin); err != nil {
		return fmt.Errorf("configure led pin %d: %w", ledPin, err)
	}

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if broker != "off" {
		real := mqtt.NewRealPublisher(broker)
		defer real.Close()
		publisher = real
		mqttStatus = real
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	startTime := time.Now()
	tracker := status.NewTracker(startTime, status.Config{
		Device:      device,
		Baud:        baud,
		PollMs:      poll.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		Broker:      broker,
		HTTPAddr:    httpAddr,
		Polarity:    polarity.String(),
		LEDPin:      ledPin,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(sched.Snapshot(), status.Counts{})

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: device=%s baud=%d poll=%v pins=%v polarity=%s broker=%s",
		device, baud, poll, pins, polarity, broker)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	disp := dispatch.New(sched, writer, ledPin)
	return runLoop(transport, disp, sched, publisher, mqttStatus, tracker, heartbeat, startTime, time.Now, ticker.C, sigCh)
}

func runLoop(transport serial.Transport, disp *dispatch.Dispatcher, sched *relay.Scheduler, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, start time.Time, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	var acc protocol.Accumulator
	var counts status.Counts
	lastHeartbeat := start

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Leave no coil energized behind us.
			sched.AllOff()

			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				tracker.Update(sched.Snapshot(), counts)
			}
			if publisher != nil {
				event := mqtt.SystemEvent{
					Timestamp: now(),
					Event:     "SHUTDOWN",
					Reason:    signalName,
					Retained:  true,
				}
				if tracker != nil {
					event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				} else {
					log.Printf("published shutdown event")
				}
			}
			return nil

		case <-tick:
			t := now()
			ticks := relay.TicksAt(start, t)

			// Drain available bytes and answer completed lines. Empty
			// lines (bare terminators, discarded overflows) draw no
			// reply.
			for {
				b, ok := transport.PollByte()
				if !ok {
					break
				}
				line, done := acc.Push(b)
				if !done || line == "" {
					continue
				}
				cmd := protocol.Parse(line)
				reply := disp.Handle(cmd, ticks)
				countReply(&counts, cmd, reply)
				if err := transport.WriteLine(reply); err != nil {
					log.Printf("serial: write reply: %v", err)
				}
			}

			// Apply due relay transitions.
			for _, tr := range sched.Tick(ticks) {
				log.Printf("relay: channel %d pin %d %s", tr.ChannelID, tr.Pin, tr.Type)
				if tr.Type == relay.TransitionOn {
					counts.RelayOn++
				} else {
					counts.RelayOff++
				}
				if publisher != nil {
					event := mqtt.RelayEvent{
						Timestamp: t,
						Pin:       tr.Pin,
						Channel:   tr.ChannelID,
						Type:      string(tr.Type),
					}
					if err := publisher.Publish(event); err != nil {
						log.Printf("publish error: %v", err)
						// Don't crash on publish failure
					}
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(sched.Snapshot(), counts)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			// Check for heartbeat
			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				log.Printf("heartbeat: uptime=%v pings=%d armed=%d busy=%d errors=%d",
					t.Sub(start).Truncate(time.Second), counts.Pings, counts.Armed, counts.Busy, counts.Errors)

				if publisher != nil {
					hbEvent := mqtt.SystemEvent{
						Timestamp: t,
						Event:     "HEARTBEAT",
					}
					if tracker != nil {
						// Refresh network info for heartbeat
						if net := readNetworkInfo(); net != nil {
							tracker.SetNetwork(net)
						}
						hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
					}
					if err := publisher.PublishSystem(hbEvent); err != nil {
						log.Printf("heartbeat publish error: %v", err)
					}
				}
			}
		}
	}
}

// countReply keeps the status counters in step with the replies on the
// wire. Armed counts only relay arms; the LED commands' OK is not an
// arm.
func countReply(c *status.Counts, cmd protocol.Command, reply string) {
	switch {
	case reply == dispatch.ReplyPong:
		c.Pings++
	case reply == dispatch.ReplyBusy:
		c.Busy++
	case reply == dispatch.ReplyErr:
		c.Errors++
	case reply == dispatch.ReplyOK && (cmd.Kind == protocol.RelayOn || cmd.Kind == protocol.RelayOnOverwrite):
		c.Armed++
	}
}

// parsePins converts the -pins flag into a pin list.
func parsePins(s string) ([]int, error) {
	var pins []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad pin %q in -pins", f)
		}
		pins = append(pins, n)
	}
	if len(pins) == 0 {
		return nil, fmt.Errorf("no relay pins in %q", s)
	}
	return pins, nil
}

func pinsString(pins []int) string {
	parts := make([]string, len(pins))
	for i, p := range pins {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
