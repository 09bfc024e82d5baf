package protocol

import (
	"bufio"
	"fmt"
	"io"
)

// WritePacketDump writes the checksummed body of every packet as one line of
// space-separated hex bytes, in transmission order.
func WritePacketDump(w io.Writer, packets []Packet) error {
	bw := bufio.NewWriter(w)
	for i := range packets {
		if _, err := fmt.Fprintf(bw, "% 02X\n", packets[i].Body()); err != nil {
			return fmt.Errorf("write packet %d: %w", i, err)
		}
	}
	return bw.Flush()
}
