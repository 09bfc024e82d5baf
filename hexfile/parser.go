package hexfile

import (
	"fmt"
	"io"
	"os"

	"github.com/marcinbor85/gohex"

	"github.com/moffa90/go-dsboot/firmware"
)

// Parse reads an Intel HEX file from the given path.
//
// Example:
//
//	img, err := hexfile.Parse("firmware.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes mapped\n", img.Size())
func Parse(path string) (*firmware.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f)
}

// ParseReader reads Intel HEX records from any io.Reader.
// Extended linear and segment address records are honoured; the resulting
// image holds one segment per contiguous run of data.
func ParseReader(r io.Reader) (*firmware.Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("failed to parse intel hex: %w", err)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, fmt.Errorf("no data records found in file")
	}

	out := make([]firmware.Segment, 0, len(segments))
	for _, s := range segments {
		out = append(out, firmware.Segment{Address: s.Address, Data: s.Data})
	}

	img, err := firmware.NewImage(out...)
	if err != nil {
		return nil, fmt.Errorf("invalid image layout: %w", err)
	}
	return img, nil
}

// Write encodes an image as Intel HEX with the given number of data bytes per record.
func Write(w io.Writer, img *firmware.Image, lineLength byte) error {
	mem := gohex.NewMemory()
	for _, s := range img.Segments() {
		if err := mem.AddBinary(s.Address, s.Data); err != nil {
			return fmt.Errorf("add segment at 0x%06X: %w", s.Address, err)
		}
	}
	if err := mem.DumpIntelHex(w, lineLength); err != nil {
		return fmt.Errorf("failed to write intel hex: %w", err)
	}
	return nil
}
