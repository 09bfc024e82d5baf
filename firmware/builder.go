package firmware

import (
	"encoding/binary"
	"fmt"

	"github.com/moffa90/go-dsboot/protocol"
)

// Device layout defaults, expressed as device word addresses.
const (
	// DefaultConfigAddress is where the bootloader expects its configuration block
	DefaultConfigAddress = 0x17F00

	// DefaultBootloaderEntry is the entry point of the resident bootloader
	DefaultBootloaderEntry = 0x17C00

	// MaxProgramAddress is the largest word address a GOTO instruction can reach
	MaxProgramAddress = 0x7FFFFF

	// ConfigAlignment is the word alignment of the configuration block, one packet
	ConfigAlignment = protocol.ChunkSize / protocol.AddressScale
)

// Configuration block layout.
const (
	// ConfigBlockSize is the length of the configuration block in image bytes
	ConfigBlockSize = 120

	// ConfigFill is the initial value of every configuration block byte
	ConfigFill = 0xFF

	identityOffset = 108
	reservedOffset = 110
	resumeOffset   = 112
)

// Entry vector layout.
const (
	// EntryVectorAddress is the image byte address of the reset vector
	EntryVectorAddress = 0

	// EntryVectorSize covers the two instruction slots of a GOTO
	EntryVectorSize = 8

	gotoOpcode = 0x04
)

// Layout places the bootloader and its configuration block in device memory.
type Layout struct {
	// BootloaderEntry is the device word address the reset vector is redirected to
	BootloaderEntry uint32

	// ConfigAddress is the device word address of the configuration block
	ConfigAddress uint32
}

// DefaultLayout returns the standard bootloader layout.
func DefaultLayout() Layout {
	return Layout{
		BootloaderEntry: DefaultBootloaderEntry,
		ConfigAddress:   DefaultConfigAddress,
	}
}

// ConfigByteAddress returns the image byte address of the configuration block.
func (l Layout) ConfigByteAddress() uint32 {
	return l.ConfigAddress * 2
}

// Validate checks that both addresses are reachable by the bootloader.
func (l Layout) Validate() error {
	if l.BootloaderEntry > MaxProgramAddress {
		return fmt.Errorf("bootloader entry 0x%06X exceeds program space (max 0x%06X)", l.BootloaderEntry, MaxProgramAddress)
	}
	if l.ConfigAddress > MaxProgramAddress {
		return fmt.Errorf("config address 0x%06X exceeds program space (max 0x%06X)", l.ConfigAddress, MaxProgramAddress)
	}
	if l.ConfigAddress == 0 {
		return fmt.Errorf("config address must be non-zero")
	}
	if l.ConfigAddress%ConfigAlignment != 0 {
		return fmt.Errorf("config address 0x%06X must be a multiple of %d words", l.ConfigAddress, ConfigAlignment)
	}
	return nil
}

// ConfigBlock is the record the bootloader reads on boot: the device identity and
// the instruction that resumes the application after programming.
type ConfigBlock [ConfigBlockSize]byte

// Bytes returns the block contents.
func (b *ConfigBlock) Bytes() []byte {
	return b[:]
}

// Identity returns the identity stored in the block.
func (b *ConfigBlock) Identity() Identity {
	return Identity(binary.LittleEndian.Uint16(b[identityOffset:]))
}

// ResumeAddress returns the application entry address encoded in the block.
func (b *ConfigBlock) ResumeAddress() uint32 {
	return decodeGoto(b[resumeOffset : resumeOffset+EntryVectorSize])
}

// Bundle is a patched image together with its configuration block.
type Bundle struct {
	// Image is the application image with its reset vector redirected
	Image *Image

	// Config is the configuration block for the bootloader
	Config ConfigBlock

	// Layout is the layout used to build the bundle
	Layout Layout

	// Identity is the device identity stamped into Config
	Identity Identity
}

// OriginalEntry returns the application entry address before patching.
func (b *Bundle) OriginalEntry() uint32 {
	return b.Config.ResumeAddress()
}

// Build redirects the image reset vector to the bootloader and derives the
// configuration block that resumes the original entry point.
//
// The input image is not modified; the returned bundle holds a patched copy.
//
// Example:
//
//	id, _ := firmware.ParseIdentity("1234")
//	bundle, err := firmware.Build(img, id, firmware.DefaultLayout())
func Build(img *Image, id Identity, layout Layout) (*Bundle, error) {
	if img == nil {
		return nil, fmt.Errorf("image cannot be nil")
	}
	if uint32(id) > 9999 {
		return nil, fmt.Errorf("device identity %d out of range [0, 9999]", id)
	}
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	// The original vector must be captured before it is overwritten.
	original, err := img.Read(EntryVectorAddress, EntryVectorSize)
	if err != nil {
		return nil, fmt.Errorf("read entry vector: %w", err)
	}

	patched := img.Clone()
	if err := patched.Patch(EntryVectorAddress, encodeGoto(layout.BootloaderEntry)); err != nil {
		return nil, fmt.Errorf("patch entry vector: %w", err)
	}

	bundle := &Bundle{
		Image:    patched,
		Config:   buildConfigBlock(id, original),
		Layout:   layout,
		Identity: id,
	}
	return bundle, nil
}

func buildConfigBlock(id Identity, original []byte) ConfigBlock {
	var b ConfigBlock
	for i := range b {
		b[i] = ConfigFill
	}

	binary.LittleEndian.PutUint16(b[identityOffset:], uint16(id))
	b[reservedOffset] = 0x00
	b[reservedOffset+1] = 0x00

	resume := b[resumeOffset : resumeOffset+EntryVectorSize]
	resume[0] = original[0]
	resume[1] = original[1]
	resume[2] = gotoOpcode
	resume[3] = 0x00
	resume[4] = original[4]
	resume[5] = 0x00
	resume[6] = 0x00
	resume[7] = 0x00

	return b
}

// encodeGoto returns the two instruction slots of an absolute GOTO.
//
//	[ADDR_L][ADDR_M][0x04][phantom] [ADDR_H][0x00][0x00][phantom]
func encodeGoto(address uint32) []byte {
	return []byte{
		byte(address), byte(address >> 8), gotoOpcode, 0x00,
		byte(address >> 16), 0x00, 0x00, 0x00,
	}
}

func decodeGoto(vector []byte) uint32 {
	return uint32(vector[0]) | uint32(vector[1])<<8 | uint32(vector[4])<<16
}

// Programmed returns the bytes the device receives as one image: the patched
// image below the configuration block followed by the block itself.
func (b *Bundle) Programmed() (*Image, error) {
	limit := b.Layout.ConfigByteAddress()

	var segments []Segment
	for _, s := range b.Image.Segments() {
		if s.Address >= limit {
			continue
		}
		if s.End() > limit {
			s.Data = s.Data[:limit-s.Address]
		}
		segments = append(segments, s)
	}
	segments = append(segments, Segment{Address: limit, Data: b.Config.Bytes()})

	return NewImage(segments...)
}
