package protocol

import (
	"strconv"
	"strings"
)

// Kind identifies a parsed command.
type Kind int

const (
	// Unrecognized is any line that matches no known command.
	Unrecognized Kind = iota
	// Malformed is a relay command with the wrong number of fields.
	// It draws the same ERR reply as Unrecognized but is a distinct
	// parse outcome.
	Malformed
	Ping
	LedOn
	LedOff
	Status
	Handshake
	RelayOn
	RelayOnOverwrite
)

// HandshakePhrase is how the host probes serial ports for this device.
// Matched exactly, case included, unlike the keyword commands.
const HandshakePhrase = "Hi, are you arduino?"

const fieldSeparator = ";"

// Command is one parsed protocol line. Pin, DelayMs and DurationMs are
// meaningful only for the relay kinds.
type Command struct {
	Kind       Kind
	Pin        int
	DelayMs    uint32
	DurationMs uint32
}

// Parse converts one trimmed line into a Command. Fixed keywords are
// case-insensitive.
func Parse(line string) Command {
	if line == HandshakePhrase {
		return Command{Kind: Handshake}
	}

	switch strings.ToUpper(line) {
	case "PING":
		return Command{Kind: Ping}
	case "LED ON":
		return Command{Kind: LedOn}
	case "LED OFF":
		return Command{Kind: LedOff}
	case "STATUS":
		return Command{Kind: Status}
	}

	fields := strings.Split(line, fieldSeparator)
	switch strings.ToUpper(fields[0]) {
	case "RELAY_ON":
		return parseRelay(fields, RelayOn)
	case "RELAY_ON_OVERWRITE":
		return parseRelay(fields, RelayOnOverwrite)
	}

	return Command{Kind: Unrecognized}
}

// parseRelay handles RELAY_ON;<pin>;<delay_ms>;<duration_ms> and its
// overwrite form. Exactly three fields must follow the keyword.
func parseRelay(fields []string, kind Kind) Command {
	if len(fields) != 4 {
		return Command{Kind: Malformed}
	}
	return Command{
		Kind:       kind,
		Pin:        lenientInt(fields[1]),
		DelayMs:    uint32(lenientInt(fields[2])),
		DurationMs: uint32(lenientInt(fields[3])),
	}
}

// lenientInt mirrors the permissive numeric coercion of the original
// firmware: anything that is not a well-formed non-negative base-10
// integer parses as 0. Observable (a garbled delay arms immediately)
// and deliberately preserved.
func lenientInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
