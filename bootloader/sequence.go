package bootloader

import (
	"fmt"

	"github.com/moffa90/go-dsboot/firmware"
	"github.com/moffa90/go-dsboot/protocol"
)

// Sequence is the ordered list of packets for one firmware bundle.
type Sequence struct {
	// Packets holds the main image packets followed by the configuration packets
	Packets []protocol.Packet

	// ImagePackets is the number of leading packets that carry the main image
	ImagePackets int

	// Dropped lists image segments at or above the configuration address.
	// They are not sent.
	Dropped []firmware.Segment
}

// BuildSequence encodes a bundle into packets.
//
// The main image is sent as protocol.ChunkSize-aligned blocks in ascending address
// order, restricted to addresses below the configuration block. The configuration
// block is always last since it carries the redirected entry point.
func BuildSequence(b *firmware.Bundle) (*Sequence, error) {
	if b == nil || b.Image == nil {
		return nil, &ConfigError{Field: "bundle", Err: fmt.Errorf("bundle cannot be nil")}
	}

	limit := b.Layout.ConfigByteAddress()
	seq := &Sequence{}

	for _, r := range b.Image.Regions(protocol.ChunkSize, limit, protocol.FillByte) {
		packets, err := protocol.Encode(r.Data, r.Address, protocol.AddressScale)
		if err != nil {
			return nil, &ConfigError{Field: "image", Err: err}
		}
		seq.Packets = append(seq.Packets, packets...)
	}
	seq.ImagePackets = len(seq.Packets)

	for _, s := range b.Image.Segments() {
		if s.End() > limit {
			if s.Address < limit {
				s = firmware.Segment{Address: limit, Data: s.Data[limit-s.Address:]}
			}
			seq.Dropped = append(seq.Dropped, s)
		}
	}

	config, err := protocol.Encode(b.Config.Bytes(), limit, protocol.AddressScale)
	if err != nil {
		return nil, &ConfigError{Field: "config address", Err: err}
	}
	seq.Packets = append(seq.Packets, config...)

	return seq, nil
}
