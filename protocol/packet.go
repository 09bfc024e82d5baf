package protocol

import "fmt"

// Packet is a single bootloader write packet.
//
// Packet structure:
//
//	[ADDR_L][ADDR_M][ADDR_H][CMD][PAYLOAD(96)][CHECKSUM]
//
// The address is a device word address. Payload bytes beyond the data supplied
// by the image are set to FillByte.
type Packet [PacketSize]byte

// Address returns the device word address encoded in the packet.
func (p *Packet) Address() uint32 {
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16
}

// Command returns the command byte.
func (p *Packet) Command() byte {
	return p[AddressSize]
}

// Payload returns the payload bytes, including any fill.
func (p *Packet) Payload() []byte {
	return p[HeaderSize:PacketBodySize]
}

// Body returns the checksummed part of the packet (all bytes but the checksum).
func (p *Packet) Body() []byte {
	return p[:PacketBodySize]
}

// Checksum returns the trailing checksum byte.
func (p *Packet) Checksum() byte {
	return p[PacketBodySize]
}

// Bytes returns the packet as it is put on the wire.
func (p *Packet) Bytes() []byte {
	return p[:]
}

// BuildPacket constructs a write packet for the given device word address.
// Payload shorter than PayloadSize is padded with FillByte.
func BuildPacket(address uint32, payload []byte) (Packet, error) {
	var p Packet

	if address > MaxAddress {
		return p, fmt.Errorf("address 0x%X exceeds %d-byte address field", address, AddressSize)
	}
	if len(payload) > PayloadSize {
		return p, fmt.Errorf("payload too large: got %d bytes, maximum is %d", len(payload), PayloadSize)
	}

	// Address (little-endian, 24-bit)
	p[0] = byte(address)
	p[1] = byte(address >> 8)
	p[2] = byte(address >> 16)

	p[AddressSize] = CmdWrite

	n := copy(p[HeaderSize:PacketBodySize], payload)
	for i := HeaderSize + n; i < PacketBodySize; i++ {
		p[i] = FillByte
	}

	p[PacketBodySize] = Checksum(p[:PacketBodySize])

	return p, nil
}

// ParsePacket validates a raw packet and returns it.
func ParsePacket(raw []byte) (Packet, error) {
	var p Packet

	if len(raw) != PacketSize {
		return p, fmt.Errorf("invalid packet length: got %d bytes, expected %d", len(raw), PacketSize)
	}
	if raw[AddressSize] != CmdWrite {
		return p, fmt.Errorf("invalid command: got 0x%02X, expected 0x%02X", raw[AddressSize], CmdWrite)
	}
	if !VerifyChecksum(raw) {
		return p, fmt.Errorf("checksum mismatch: got 0x%02X, expected 0x%02X",
			raw[PacketBodySize], Checksum(raw[:PacketBodySize]))
	}

	copy(p[:], raw)
	return p, nil
}

// CompressChunk drops the phantom byte of every instruction slot in chunk.
// A trailing partial slot is completed with FillByte before compression.
func CompressChunk(chunk []byte) []byte {
	slots := (len(chunk) + InstructionSize - 1) / InstructionSize
	out := make([]byte, 0, slots*InstructionBytes)

	for s := 0; s < slots; s++ {
		for i := 0; i < InstructionBytes; i++ {
			idx := s*InstructionSize + i
			if idx < len(chunk) {
				out = append(out, chunk[idx])
			} else {
				out = append(out, FillByte)
			}
		}
	}

	return out
}

// Encode splits data into ChunkSize-byte chunks and returns one packet per chunk.
//
// baseAddress is the image byte address of data[0]. The write address of each
// packet is (baseAddress + offset) / scale. A final chunk shorter than ChunkSize
// is treated as if the missing bytes were FillByte.
func Encode(data []byte, baseAddress uint32, scale uint32) ([]Packet, error) {
	if scale == 0 {
		return nil, fmt.Errorf("address scale must be non-zero")
	}

	packets := make([]Packet, 0, (len(data)+ChunkSize-1)/ChunkSize)

	for offset := 0; offset < len(data); offset += ChunkSize {
		end := offset + ChunkSize
		if end > len(data) {
			end = len(data)
		}

		chunk := make([]byte, ChunkSize)
		n := copy(chunk, data[offset:end])
		for i := n; i < ChunkSize; i++ {
			chunk[i] = FillByte
		}

		address := (baseAddress + uint32(offset)) / scale
		p, err := BuildPacket(address, CompressChunk(chunk))
		if err != nil {
			return nil, fmt.Errorf("chunk at 0x%06X: %w", baseAddress+uint32(offset), err)
		}
		packets = append(packets, p)
	}

	return packets, nil
}
