package firmware

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImage_MergesAdjacentSegments(t *testing.T) {
	img, err := NewImage(
		Segment{Address: 0x10, Data: []byte{0x03, 0x04}},
		Segment{Address: 0x0E, Data: []byte{0x01, 0x02}},
		Segment{Address: 0x40, Data: []byte{0x05}},
	)
	require.NoError(t, err)

	segs := img.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, uint32(0x0E), segs[0].Address)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, segs[0].Data)
	assert.Equal(t, uint32(0x40), segs[1].Address)
	assert.Equal(t, 5, img.Size())
}

func TestNewImage_RejectsOverlap(t *testing.T) {
	_, err := NewImage(
		Segment{Address: 0x00, Data: make([]byte, 8)},
		Segment{Address: 0x04, Data: make([]byte, 8)},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps")
}

func TestNewImage_CopiesInput(t *testing.T) {
	data := []byte{0x01, 0x02}
	img, err := NewImage(Segment{Address: 0, Data: data})
	require.NoError(t, err)

	data[0] = 0xEE
	got, err := img.Read(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, got)
}

func TestImage_Read(t *testing.T) {
	img, err := NewImage(
		Segment{Address: 0x100, Data: []byte{0xA0, 0xA1, 0xA2, 0xA3}},
		Segment{Address: 0x200, Data: []byte{0xB0}},
	)
	require.NoError(t, err)

	got, err := img.Read(0x101, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA1, 0xA2}, got)

	_, err = img.Read(0x0FF, 2)
	var unmapped *UnmappedError
	require.ErrorAs(t, err, &unmapped)
	assert.Equal(t, uint32(0x0FF), unmapped.Address)

	_, err = img.Read(0x103, 2)
	require.ErrorAs(t, err, &unmapped)

	_, err = img.Read(0x300, 1)
	require.ErrorAs(t, err, &unmapped)
	assert.Contains(t, err.Error(), "not mapped")
}

func TestImage_PatchAndClone(t *testing.T) {
	img, err := NewImage(Segment{Address: 0, Data: []byte{0x00, 0x00, 0x00, 0x00}})
	require.NoError(t, err)

	clone := img.Clone()
	require.NoError(t, clone.Patch(1, []byte{0x11, 0x22}))

	patched, err := clone.Read(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x11, 0x22, 0x00}, patched)

	original, err := img.Read(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, original, "clone patch must not affect the source image")

	err = clone.Patch(3, []byte{0x01, 0x02})
	var unmapped *UnmappedError
	assert.ErrorAs(t, err, &unmapped)
}

func TestImage_Regions(t *testing.T) {
	img, err := NewImage(
		Segment{Address: 0x000, Data: bytes.Repeat([]byte{0x11}, 8)},
		Segment{Address: 0x090, Data: bytes.Repeat([]byte{0x22}, 4)},
		Segment{Address: 0x400, Data: bytes.Repeat([]byte{0x33}, 130)},
		Segment{Address: 0xF80000, Data: []byte{0x44}},
	)
	require.NoError(t, err)

	regions := img.Regions(128, 0x2FE00, 0xFF)
	require.Len(t, regions, 2)

	// First two segments share one run of two 128-byte blocks.
	assert.Equal(t, uint32(0x000), regions[0].Address)
	require.Len(t, regions[0].Data, 256)
	assert.Equal(t, bytes.Repeat([]byte{0x11}, 8), regions[0].Data[:8])
	assert.Equal(t, byte(0xFF), regions[0].Data[8])
	assert.Equal(t, bytes.Repeat([]byte{0x22}, 4), regions[0].Data[0x90:0x94])
	assert.Equal(t, byte(0xFF), regions[0].Data[0xFF])

	// 130 bytes round up to two blocks.
	assert.Equal(t, uint32(0x400), regions[1].Address)
	require.Len(t, regions[1].Data, 256)
	assert.Equal(t, byte(0x33), regions[1].Data[129])
	assert.Equal(t, byte(0xFF), regions[1].Data[130])
}

func TestImage_RegionsTruncatesAtLimit(t *testing.T) {
	img, err := NewImage(Segment{Address: 0x80, Data: bytes.Repeat([]byte{0x55}, 0x100)})
	require.NoError(t, err)

	regions := img.Regions(128, 0x100, 0xFF)
	require.Len(t, regions, 1)
	assert.Equal(t, uint32(0x80), regions[0].Address)
	assert.Len(t, regions[0].Data, 128)
}

func TestImage_RegionsUnalignedSegment(t *testing.T) {
	img, err := NewImage(Segment{Address: 0x7E, Data: []byte{0x01, 0x02, 0x03, 0x04}})
	require.NoError(t, err)

	regions := img.Regions(128, 0x10000, 0xFF)
	require.Len(t, regions, 1)
	assert.Equal(t, uint32(0), regions[0].Address)
	require.Len(t, regions[0].Data, 256)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, regions[0].Data[0x7E:0x82])
}
