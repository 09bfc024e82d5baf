package firmware

import (
	"fmt"
	"sort"
)

// Segment is a contiguous run of image bytes starting at a byte address.
type Segment struct {
	// Address is the image byte address of Data[0]
	Address uint32

	// Data holds the segment contents
	Data []byte
}

// End returns the first byte address after the segment.
func (s Segment) End() uint32 {
	return s.Address + uint32(len(s.Data))
}

// UnmappedError reports an access to addresses not covered by any segment.
type UnmappedError struct {
	Address uint32
	Length  int
}

func (e *UnmappedError) Error() string {
	return fmt.Sprintf("address range 0x%06X-0x%06X is not mapped", e.Address, e.Address+uint32(e.Length)-1)
}

// Image is a sparse firmware memory image keyed by byte address.
//
// Segments are kept sorted and never overlap. An Image is not modified after
// construction except through Patch.
type Image struct {
	segments []Segment
}

// NewImage builds an image from segments. Segment data is copied.
// Adjacent segments are merged; overlapping segments are an error.
func NewImage(segments ...Segment) (*Image, error) {
	sorted := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if len(s.Data) == 0 {
			continue
		}
		if uint64(s.Address)+uint64(len(s.Data)) > 1<<32 {
			return nil, fmt.Errorf("segment at 0x%08X overflows the address space", s.Address)
		}
		data := make([]byte, len(s.Data))
		copy(data, s.Data)
		sorted = append(sorted, Segment{Address: s.Address, Data: data})
	}

	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	merged := make([]Segment, 0, len(sorted))
	for _, s := range sorted {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if s.Address < last.End() {
				return nil, fmt.Errorf("segment at 0x%06X overlaps segment 0x%06X-0x%06X",
					s.Address, last.Address, last.End()-1)
			}
			if s.Address == last.End() {
				last.Data = append(last.Data, s.Data...)
				continue
			}
		}
		merged = append(merged, s)
	}

	return &Image{segments: merged}, nil
}

// Segments returns a copy of the image segments in ascending address order.
func (m *Image) Segments() []Segment {
	out := make([]Segment, len(m.segments))
	for i, s := range m.segments {
		out[i] = Segment{Address: s.Address, Data: append([]byte(nil), s.Data...)}
	}
	return out
}

// Size returns the number of mapped bytes.
func (m *Image) Size() int {
	n := 0
	for _, s := range m.segments {
		n += len(s.Data)
	}
	return n
}

// Clone returns a deep copy of the image.
func (m *Image) Clone() *Image {
	return &Image{segments: m.Segments()}
}

// find returns the segment containing [addr, addr+n) or nil.
func (m *Image) find(addr uint32, n int) *Segment {
	i := sort.Search(len(m.segments), func(i int) bool { return m.segments[i].End() > addr })
	if i == len(m.segments) {
		return nil
	}
	s := &m.segments[i]
	if addr < s.Address || uint64(addr)+uint64(n) > uint64(s.End()) {
		return nil
	}
	return s
}

// Read returns a copy of n bytes starting at addr.
// All bytes must be mapped by a single segment.
func (m *Image) Read(addr uint32, n int) ([]byte, error) {
	s := m.find(addr, n)
	if s == nil {
		return nil, &UnmappedError{Address: addr, Length: n}
	}
	off := addr - s.Address
	out := make([]byte, n)
	copy(out, s.Data[off:off+uint32(n)])
	return out, nil
}

// Patch overwrites mapped bytes starting at addr.
func (m *Image) Patch(addr uint32, data []byte) error {
	s := m.find(addr, len(data))
	if s == nil {
		return &UnmappedError{Address: addr, Length: len(data)}
	}
	copy(s.Data[addr-s.Address:], data)
	return nil
}

// Regions returns the image as runs of align-sized blocks below limit.
//
// Every block that contains at least one mapped byte is included; unmapped bytes
// inside a block are set to fill. Consecutive blocks are joined into one region.
// Mapped bytes at or above limit are not included.
func (m *Image) Regions(align, limit uint32, fill byte) []Segment {
	if align == 0 {
		align = 1
	}

	var regions []Segment
	for _, s := range m.segments {
		if s.Address >= limit {
			break
		}
		end := s.End()
		if end > limit {
			end = limit
		}

		start := s.Address - s.Address%align
		stop := end
		if r := stop % align; r != 0 {
			stop += align - r
		}

		// Extend the previous region when blocks touch or overlap.
		if n := len(regions); n > 0 && start <= regions[n-1].End() {
			last := &regions[n-1]
			for last.End() < stop {
				last.Data = append(last.Data, fill)
			}
			copy(last.Data[s.Address-last.Address:], s.Data[:end-s.Address])
			continue
		}

		data := make([]byte, stop-start)
		for i := range data {
			data[i] = fill
		}
		copy(data[s.Address-start:], s.Data[:end-s.Address])
		regions = append(regions, Segment{Address: start, Data: data})
	}

	return regions
}
