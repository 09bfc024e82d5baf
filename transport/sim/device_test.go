package sim_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-dsboot/bootloader"
	"github.com/moffa90/go-dsboot/firmware"
	"github.com/moffa90/go-dsboot/protocol"
	"github.com/moffa90/go-dsboot/transport/sim"
)

var fast = []bootloader.Option{
	bootloader.WithResetPulse(0),
	bootloader.WithHandshakeDelay(0),
	bootloader.WithPollInterval(0),
}

func bundle(t *testing.T, size int) *firmware.Bundle {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i * 7)
	}
	img, err := firmware.NewImage(firmware.Segment{Address: 0, Data: data})
	require.NoError(t, err)

	b, err := firmware.Build(img, 4321, firmware.DefaultLayout())
	require.NoError(t, err)
	return b
}

func TestDeviceIgnoresProbeBeforeReset(t *testing.T) {
	d := sim.New()
	require.NoError(t, d.OpenReceiver())
	require.NoError(t, d.Transmit([]byte{protocol.HandshakeProbe}))

	reply, err := d.Receive()
	require.NoError(t, err)
	assert.Empty(t, reply)

	require.NoError(t, d.SetReset(true))
	require.NoError(t, d.Transmit([]byte{protocol.HandshakeProbe}))
	require.NoError(t, d.SetReset(false))
	require.NoError(t, d.Transmit([]byte{protocol.HandshakeProbe}))

	reply, err = d.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte("qK"), reply)
}

func TestDeviceRejectsBadChecksum(t *testing.T) {
	d := sim.New()
	require.NoError(t, d.OpenReceiver())
	require.NoError(t, d.SetReset(true))
	require.NoError(t, d.SetReset(false))
	require.NoError(t, d.Transmit([]byte{protocol.HandshakeProbe}))
	_, _ = d.Receive()

	pkt, err := protocol.BuildPacket(0x40, []byte{1, 2, 3})
	require.NoError(t, err)
	raw := pkt.Bytes()
	raw[10] ^= 0xFF

	require.NoError(t, d.Transmit(raw))
	reply, err := d.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte("N"), reply)

	_, ok := d.Payload(0x40)
	assert.False(t, ok)
}

func TestDeviceReceiveRequiresOpen(t *testing.T) {
	d := sim.New()
	_, err := d.Receive()
	assert.ErrorIs(t, err, sim.ErrReceiverClosed)

	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Transmit([]byte{protocol.HandshakeProbe}), sim.ErrClosed)
}

func TestProgramAgainstDevice(t *testing.T) {
	d := sim.New()
	b := bundle(t, 300)

	seq, err := bootloader.BuildSequence(b)
	require.NoError(t, err)

	prog := bootloader.New(d, fast...)
	require.NoError(t, prog.Program(context.Background(), seq.Packets))

	stats := d.Stats()
	assert.True(t, stats.Terminated)
	assert.Equal(t, 1, stats.Resets)
	assert.Equal(t, len(seq.Packets), stats.Packets)
	assert.Equal(t, []uint32{0x000000, 0x000040, 0x000080, 0x017F00}, d.Addresses())

	for _, p := range seq.Packets {
		got, ok := d.Payload(p.Address())
		require.True(t, ok)
		assert.Equal(t, p.Payload(), got)
	}

	cfg, ok := d.Payload(0x17F00)
	require.True(t, ok)
	// Identity 4321 = 0x10E1 sits at config byte 108, compressed offset 81.
	assert.Equal(t, []byte{0xE1, 0x10, 0x00}, cfg[81:84])
}

func TestProgramRecoversFromFaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    []sim.Option
		resets  int
		retries int
	}{
		{"silent probes", []sim.Option{sim.WithIgnoredProbes(7)}, 2, 0},
		{"rejected packet", []sim.Option{sim.WithRejectedPackets(1)}, 2, 1},
		{"garbage reply", []sim.Option{sim.WithGarbageReplies(2)}, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sim.New(tt.opts...)
			opts := append([]bootloader.Option{bootloader.WithRetries(tt.retries)}, fast...)

			sess := bootloader.NewSession(d, opts...)
			require.NoError(t, sess.Run(context.Background(), bundle(t, 128)))

			stats := d.Stats()
			assert.True(t, stats.Terminated)
			assert.Equal(t, tt.resets, stats.Resets)
			assert.Equal(t, 2, stats.Written)
		})
	}
}

func TestProgramGivesUpOnPersistentRejects(t *testing.T) {
	d := sim.New(sim.WithRejectedPackets(100))

	prog := bootloader.New(d, append([]bootloader.Option{bootloader.WithRetries(2)}, fast...)...)
	err := prog.Flash(context.Background(), bundle(t, 64))

	var rejected *bootloader.ChecksumRejectedError
	require.True(t, errors.As(err, &rejected), "got %v", err)
	assert.Equal(t, 3, d.Stats().Resets)
	assert.False(t, d.Stats().Terminated)
	assert.Equal(t, bootloader.StateFailed, prog.State())
}
