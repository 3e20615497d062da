// Package gpio provides GPIO output control with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Writer drives GPIO output pins.
type Writer interface {
	// ConfigureOutput claims the pin as a digital output, initially low.
	ConfigureOutput(pin int) error

	// Write drives the pin high (true) or low (false). The pin must
	// have been configured with ConfigureOutput first.
	Write(pin int, high bool) error

	// Close releases GPIO resources.
	Close() error
}

// Default pin assignments (BCM numbering).
const (
	// DefaultLEDPin drives the indicator LED.
	DefaultLEDPin = 21
)

// DefaultRelayPins matches the standard 4-relay HAT header layout.
var DefaultRelayPins = []int{5, 6, 13, 26}
