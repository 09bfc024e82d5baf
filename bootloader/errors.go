package bootloader

import (
	"errors"
	"fmt"
	"time"
)

// ConfigError indicates invalid input: a bad identity, an unreadable image or an
// unusable layout. It is never retried.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// HandshakeTimeoutError indicates that the bootloader never answered the probe.
type HandshakeTimeoutError struct {
	ResetAttempts int
	Probes        int
}

func (e *HandshakeTimeoutError) Error() string {
	return fmt.Sprintf("handshake timeout: no reply after %d reset cycles (%d probes)",
		e.ResetAttempts, e.Probes)
}

// ChecksumRejectedError indicates that the bootloader answered a packet with a NAK.
type ChecksumRejectedError struct {
	Packet  int
	Address uint32
}

func (e *ChecksumRejectedError) Error() string {
	return fmt.Sprintf("checksum rejected for packet %d at address 0x%06X", e.Packet, e.Address)
}

// ProtocolViolationError indicates an unexpected or undecodable packet reply.
type ProtocolViolationError struct {
	Packet  int
	Address uint32
	Reply   []byte
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: unexpected reply % X to packet %d at address 0x%06X",
		e.Reply, e.Packet, e.Address)
}

// AckTimeoutError indicates that no acknowledgement arrived within the configured bound.
type AckTimeoutError struct {
	Packet  int
	Address uint32
	Timeout time.Duration
}

func (e *AckTimeoutError) Error() string {
	return fmt.Sprintf("no acknowledgement for packet %d at address 0x%06X within %s",
		e.Packet, e.Address, e.Timeout)
}

// TransportUnavailableError indicates that the link cannot be used. It is never retried.
type TransportUnavailableError struct {
	Op  string
	Err error
}

func (e *TransportUnavailableError) Error() string {
	return fmt.Sprintf("transport unavailable: %s: %v", e.Op, e.Err)
}

func (e *TransportUnavailableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err may be resolved by restarting the session.
func IsRetryable(err error) bool {
	var (
		handshake *HandshakeTimeoutError
		checksum  *ChecksumRejectedError
		violation *ProtocolViolationError
		ack       *AckTimeoutError
	)
	switch {
	case errors.As(err, &handshake):
		return true
	case errors.As(err, &checksum):
		return true
	case errors.As(err, &violation):
		return true
	case errors.As(err, &ack):
		return true
	default:
		return false
	}
}
