package transport

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/moffa90/go-dsboot/protocol"
)

// ResetLine selects the modem control line wired to the device reset pin.
type ResetLine int

const (
	// ResetDTR drives reset with DTR
	ResetDTR ResetLine = iota

	// ResetRTS drives reset with RTS
	ResetRTS
)

func (l ResetLine) String() string {
	switch l {
	case ResetDTR:
		return "dtr"
	case ResetRTS:
		return "rts"
	default:
		return fmt.Sprintf("ResetLine(%d)", int(l))
	}
}

// ParseResetLine parses "dtr" or "rts", ignoring case.
func ParseResetLine(s string) (ResetLine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dtr":
		return ResetDTR, nil
	case "rts":
		return ResetRTS, nil
	default:
		return 0, fmt.Errorf("unknown reset line %q (want dtr or rts)", s)
	}
}

// DefaultReadTimeout is how long a single Receive waits for the first byte.
const DefaultReadTimeout = 10 * time.Millisecond

// SerialConfig configures a serial link.
type SerialConfig struct {
	// Port is the device path, e.g. /dev/ttyUSB0 or COM3
	Port string

	// BaudRate defaults to protocol.BaudRate
	BaudRate int

	// ResetLine defaults to DTR
	ResetLine ResetLine

	// ReadTimeout bounds each Receive poll; defaults to DefaultReadTimeout
	ReadTimeout time.Duration
}

// port is the subset of serial.Port used by Serial.
type port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	SetReadTimeout(t time.Duration) error
	Close() error
}

var errReceiverClosed = errors.New("receiver not open")

// Serial is a bootloader link over a serial port at 8N1.
type Serial struct {
	port port
	cfg  SerialConfig

	mu        sync.Mutex
	receiving bool
	buf       []byte

	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens the port described by cfg.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial port not specified")
	}
	cfg = cfg.withDefaults()

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: protocol.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}

	return newSerial(p, cfg), nil
}

func newSerial(p port, cfg SerialConfig) *Serial {
	return &Serial{
		port: p,
		cfg:  cfg.withDefaults(),
		buf:  make([]byte, 64),
	}
}

func (c SerialConfig) withDefaults() SerialConfig {
	if c.BaudRate == 0 {
		c.BaudRate = protocol.BaudRate
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Transmit writes p in full.
func (s *Serial) Transmit(p []byte) error {
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return fmt.Errorf("write %s: %w", s.cfg.Port, err)
		}
		if n == 0 {
			return fmt.Errorf("write %s: no progress", s.cfg.Port)
		}
		p = p[n:]
	}
	return nil
}

// OpenReceiver enables Receive and sets the poll timeout.
func (s *Serial) OpenReceiver() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.port.SetReadTimeout(s.cfg.ReadTimeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}
	s.receiving = true
	return nil
}

// Receive returns whatever bytes arrived within the read timeout, possibly none.
func (s *Serial) Receive() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.receiving {
		return nil, errReceiverClosed
	}

	n, err := s.port.Read(s.buf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.cfg.Port, err)
	}
	if n == 0 {
		return nil, nil
	}
	return append([]byte(nil), s.buf[:n]...), nil
}

// CloseReceiver disables Receive.
func (s *Serial) CloseReceiver() error {
	s.mu.Lock()
	s.receiving = false
	s.mu.Unlock()
	return nil
}

// SetReset drives the configured reset line.
func (s *Serial) SetReset(asserted bool) error {
	switch s.cfg.ResetLine {
	case ResetRTS:
		return s.port.SetRTS(asserted)
	default:
		return s.port.SetDTR(asserted)
	}
}

// Flush discards buffered input and output.
func (s *Serial) Flush() error {
	if err := s.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}
	if err := s.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("reset output buffer: %w", err)
	}
	return nil
}

// Close releases the port. Subsequent calls return the first result.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseReceiver()
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}
