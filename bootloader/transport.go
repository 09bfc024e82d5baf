package bootloader

// Transport is a byte-oriented link to the target with control over its reset line.
//
// Receive must not block: it returns whatever bytes are pending, possibly none.
// The receive channel is opened with OpenReceiver before the first Receive and is
// released with CloseReceiver.
type Transport interface {
	// Transmit sends raw bytes to the device
	Transmit(p []byte) error

	// OpenReceiver starts buffering bytes sent by the device
	OpenReceiver() error

	// Receive returns the bytes received since the previous call
	Receive() ([]byte, error)

	// CloseReceiver releases the receive channel
	CloseReceiver() error

	// SetReset drives the device reset line (true = held in reset)
	SetReset(asserted bool) error

	// Flush discards pending bytes in both directions
	Flush() error
}
