// Package protocol implements the wire format of the dsPIC serial bootloader.
//
// This package builds write packets from firmware image bytes and classifies the
// replies the bootloader sends during a session.
//
// # Protocol Overview
//
// A session is a sequence of single-byte probes followed by fixed-size packets:
//
//	Probe:       [0xC1]                  reply "qK"
//	Packet:      [ADDR(3)][0x60][PAYLOAD(96)][CHECKSUM]   reply "K" or "N"
//	Termination: [0x95][0x00][0x00][0xFF] no reply
//
// Where:
//   - ADDR = 24-bit device word address (little-endian)
//   - PAYLOAD = 32 instructions of 3 bytes each, padded with 0xFF
//   - CHECKSUM = 2's complement of the byte sum of ADDR, command and payload
//
// # Image Encoding
//
// Firmware images store each 24-bit instruction in a 4-byte slot whose last byte is
// a phantom byte. Encode consumes 128 image bytes per packet, drops the phantom
// bytes and halves the image byte address to get the device word address:
//
//	packets, err := protocol.Encode(data, 0x000400, protocol.AddressScale)
//
// # Replies
//
//	ok, err := protocol.ParseHandshakeReply(reply)
//	switch protocol.ParseAckReply(reply) {
//	case protocol.AckOK:
//	case protocol.AckRejected:
//	default:
//	}
package protocol
