package firmware

import (
	"bufio"
	"fmt"
	"io"
)

// DumpLineSize is the number of bytes per line in an image dump.
const DumpLineSize = 16

// WriteImageDump writes the regions of a bundle image below the configuration
// address, followed by the configuration block, DumpLineSize bytes per line:
//
//	000000: 00 7C 04 00 01 00 00 00 ...
func WriteImageDump(w io.Writer, b *Bundle, align uint32) error {
	bw := bufio.NewWriter(w)

	configAddr := b.Layout.ConfigByteAddress()
	for _, r := range b.Image.Regions(align, configAddr, ConfigFill) {
		if err := dumpLines(bw, r.Address, r.Data); err != nil {
			return err
		}
	}
	if err := dumpLines(bw, configAddr, b.Config.Bytes()); err != nil {
		return err
	}

	return bw.Flush()
}

func dumpLines(w io.Writer, addr uint32, data []byte) error {
	for off := 0; off < len(data); off += DumpLineSize {
		end := off + DumpLineSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := fmt.Fprintf(w, "%06X: % X\n", addr+uint32(off), data[off:end]); err != nil {
			return fmt.Errorf("write dump line at 0x%06X: %w", addr+uint32(off), err)
		}
	}
	return nil
}
