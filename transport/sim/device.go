// Package sim provides an in-memory serial bootloader.
//
// Device answers the probe, acknowledges packets with valid checksums and records
// every accepted payload by word address. Options inject the faults a noisy link
// or a busy bootloader produces.
package sim

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/moffa90/go-dsboot/protocol"
)

// ErrReceiverClosed is returned by Receive outside OpenReceiver/CloseReceiver.
var ErrReceiverClosed = errors.New("sim: receiver not open")

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("sim: device closed")

// GarbageReply is sent instead of an acknowledgement when garbage is injected.
var GarbageReply = []byte{0x3F, 0x00}

// Option configures a Device.
type Option func(*Device)

// WithIgnoredProbes makes the device stay silent for the first n probes.
func WithIgnoredProbes(n int) Option {
	return func(d *Device) {
		d.ignoreProbes = n
	}
}

// WithRejectedPackets makes the device answer "N" to the first n packets.
func WithRejectedPackets(n int) Option {
	return func(d *Device) {
		d.rejectPackets = n
	}
}

// WithGarbageReplies makes the device answer the first n packets with GarbageReply.
func WithGarbageReplies(n int) Option {
	return func(d *Device) {
		d.garbageReplies = n
	}
}

// Device is a simulated bootloader. It implements bootloader.Link.
type Device struct {
	mu sync.Mutex

	ignoreProbes   int
	rejectPackets  int
	garbageReplies int

	inReset    bool
	resets     int
	connected  bool
	receiving  bool
	closed     bool
	terminated bool

	probes   int
	received int
	pending  []byte
	memory   map[uint32][]byte
	order    []uint32
}

// New creates a simulated device.
func New(opts ...Option) *Device {
	d := &Device{memory: make(map[uint32][]byte)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Transmit delivers bytes to the device. The device answers into its reply buffer.
func (d *Device) Transmit(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.inReset {
		return nil
	}

	switch {
	case len(p) == 1 && p[0] == protocol.HandshakeProbe:
		d.handleProbe()
	case len(p) == protocol.PacketSize:
		d.handlePacket(p)
	case bytes.Equal(p, protocol.TerminationSequence):
		if d.connected {
			d.terminated = true
			d.connected = false
		}
	}
	return nil
}

func (d *Device) handleProbe() {
	d.probes++
	if d.resets == 0 || d.probes <= d.ignoreProbes {
		return
	}
	d.connected = true
	d.pending = append(d.pending, protocol.HandshakeReply...)
}

func (d *Device) handlePacket(raw []byte) {
	if !d.connected {
		return
	}
	d.received++

	switch {
	case d.received <= d.garbageReplies:
		d.pending = append(d.pending, GarbageReply...)
		return
	case d.received <= d.garbageReplies+d.rejectPackets:
		d.pending = append(d.pending, protocol.NakReply...)
		return
	}

	pkt, err := protocol.ParsePacket(raw)
	if err != nil {
		d.pending = append(d.pending, protocol.NakReply...)
		return
	}

	addr := pkt.Address()
	if _, ok := d.memory[addr]; !ok {
		d.order = append(d.order, addr)
	}
	d.memory[addr] = append([]byte(nil), pkt.Payload()...)
	d.pending = append(d.pending, protocol.AckReply...)
}

// OpenReceiver enables Receive.
func (d *Device) OpenReceiver() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.receiving = true
	return nil
}

// Receive returns and clears the pending reply bytes.
func (d *Device) Receive() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if !d.receiving {
		return nil, ErrReceiverClosed
	}
	out := d.pending
	d.pending = nil
	return out, nil
}

// CloseReceiver disables Receive.
func (d *Device) CloseReceiver() error {
	d.mu.Lock()
	d.receiving = false
	d.mu.Unlock()
	return nil
}

// SetReset holds the device in reset while asserted.
// Releasing reset restarts the bootloader and drops any connection.
func (d *Device) SetReset(asserted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if asserted {
		d.inReset = true
		d.connected = false
		d.pending = nil
		return nil
	}
	if d.inReset {
		d.inReset = false
		d.resets++
	}
	return nil
}

// Flush discards pending replies.
func (d *Device) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.pending = nil
	return nil
}

// Close shuts the device down.
func (d *Device) Close() error {
	d.mu.Lock()
	d.closed = true
	d.receiving = false
	d.mu.Unlock()
	return nil
}

// Stats summarises what the device observed.
type Stats struct {
	Resets     int
	Probes     int
	Packets    int
	Written    int
	Terminated bool
}

// Stats returns a snapshot of device counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Stats{
		Resets:     d.resets,
		Probes:     d.probes,
		Packets:    d.received,
		Written:    len(d.memory),
		Terminated: d.terminated,
	}
}

// Payload returns the last payload accepted at a word address.
func (d *Device) Payload(address uint32) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.memory[address]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), p...), true
}

// Addresses returns every written word address in ascending order.
func (d *Device) Addresses() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := append([]uint32(nil), d.order...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
