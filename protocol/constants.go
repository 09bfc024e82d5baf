package protocol

// Serial link parameters expected by the resident bootloader.
const (
	// BaudRate is the fixed bit rate of the bootloader UART
	BaudRate = 38400

	// DataBits is the character size (8N1 framing, no parity)
	DataBits = 8
)

// Handshake and session control bytes.
const (
	// HandshakeProbe is sent repeatedly after reset until the bootloader answers
	HandshakeProbe = 0xC1

	// HandshakeReply is the acknowledgement the bootloader sends to a probe
	HandshakeReply = "qK"

	// AckReply acknowledges a packet
	AckReply = "K"

	// NakReply reports a packet checksum rejected by the bootloader
	NakReply = "N"
)

// TerminationSequence ends a programming session. No reply is sent.
var TerminationSequence = []byte{0x95, 0x00, 0x00, 0xFF}

// Packet structure constants.
const (
	// PacketSize is the total length of a write packet including checksum
	PacketSize = 101

	// PacketBodySize is the number of bytes covered by the checksum
	PacketBodySize = PacketSize - 1

	// AddressSize is the length of the little-endian write address field
	AddressSize = 3

	// CmdWrite is the command byte following the address field
	CmdWrite = 0x60

	// HeaderSize is the address field plus the command byte
	HeaderSize = AddressSize + 1

	// PayloadSize is the maximum number of payload bytes in a packet
	PayloadSize = PacketBodySize - HeaderSize

	// FillByte pads short payloads and unmapped image bytes
	FillByte = 0xFF

	// MaxAddress is the largest word address representable in the address field
	MaxAddress = 1<<(8*AddressSize) - 1
)

// Image chunking constants.
const (
	// ChunkSize is the number of image bytes consumed per packet
	ChunkSize = 128

	// InstructionSize is the width of one instruction slot in the image.
	// The last byte of every slot is a phantom byte and is not transmitted.
	InstructionSize = 4

	// InstructionBytes is the number of significant bytes in an instruction slot
	InstructionBytes = 3

	// AddressScale converts image byte addresses to device word addresses
	AddressScale = 2
)
