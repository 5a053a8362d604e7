package udping

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

const (
	// PingPayload is the first datagram sent to the responder.
	PingPayload = "this is a ping!"
	// Sentinel ends a ping session when received verbatim.
	Sentinel = "reply"
	// MaxDatagram is the default receive buffer size.
	MaxDatagram = 4096
)

var (
	ErrInvalidPayload = errors.New("udping: payload is not valid UTF-8")
	ErrInvalidPort    = errors.New("udping: invalid port")
)

// FormatPing returns the payload sent back to the responder after the counter-th
// non-sentinel datagram. The double space is part of the wire format.
func FormatPing(counter int) []byte {
	return []byte("this is " + strconv.Itoa(counter) + "  ping!")
}

// Decode interprets b as UTF-8 text.
func Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w (%d bytes)", ErrInvalidPayload, len(b))
	}
	return string(b), nil
}

// IsSentinel reports whether msg is exactly the sentinel. No trimming is done.
func IsSentinel(msg string) bool {
	return msg != "" && msg == Sentinel
}

// Port parses a decimal UDP port in the range 1-65535.
func Port(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidPort, s, err)
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("%w %q: out of range", ErrInvalidPort, s)
	}
	return p, nil
}
