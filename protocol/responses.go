package protocol

import (
	"fmt"
	"unicode/utf8"
)

// AckStatus classifies a per-packet reply.
type AckStatus int

const (
	// AckInvalid is any reply other than AckReply or NakReply
	AckInvalid AckStatus = iota

	// AckOK means the packet was accepted
	AckOK

	// AckRejected means the bootloader rejected the packet checksum
	AckRejected
)

func (s AckStatus) String() string {
	switch s {
	case AckOK:
		return "ack"
	case AckRejected:
		return "checksum rejected"
	default:
		return "invalid reply"
	}
}

// DecodeReply decodes raw reply bytes as ASCII text.
// Returns an error if the bytes are not printable ASCII.
func DecodeReply(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty reply")
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("undecodable reply: % X", raw)
	}
	for _, b := range raw {
		if b < 0x20 || b > 0x7E {
			return "", fmt.Errorf("non-printable reply: % X", raw)
		}
	}
	return string(raw), nil
}

// ParseHandshakeReply reports whether raw is exactly the handshake acknowledgement.
// Partial, garbled or undecodable replies return false together with the reason.
func ParseHandshakeReply(raw []byte) (bool, error) {
	reply, err := DecodeReply(raw)
	if err != nil {
		return false, err
	}
	if reply != HandshakeReply {
		return false, fmt.Errorf("unexpected handshake reply %q", reply)
	}
	return true, nil
}

// ParseAckReply classifies the reply received after a packet.
func ParseAckReply(raw []byte) AckStatus {
	reply, err := DecodeReply(raw)
	if err != nil {
		return AckInvalid
	}

	switch reply {
	case AckReply:
		return AckOK
	case NakReply:
		return AckRejected
	default:
		return AckInvalid
	}
}
