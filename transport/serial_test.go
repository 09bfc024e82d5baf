package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	written     []byte
	input       [][]byte
	maxWrite    int
	dtr, rts    []bool
	inFlushed   int
	outFlushed  int
	readTimeout time.Duration
	closed      int
	readErr     error
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.input) == 0 {
		return 0, nil
	}
	n := copy(p, f.input[0])
	f.input = f.input[1:]
	return n, nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	n := len(p)
	if f.maxWrite > 0 && n > f.maxWrite {
		n = f.maxWrite
	}
	f.written = append(f.written, p[:n]...)
	return n, nil
}

func (f *fakePort) ResetInputBuffer() error  { f.inFlushed++; return nil }
func (f *fakePort) ResetOutputBuffer() error { f.outFlushed++; return nil }
func (f *fakePort) SetDTR(v bool) error      { f.dtr = append(f.dtr, v); return nil }
func (f *fakePort) SetRTS(v bool) error      { f.rts = append(f.rts, v); return nil }
func (f *fakePort) Close() error             { f.closed++; return nil }

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.readTimeout = t
	return nil
}

func TestParseResetLine(t *testing.T) {
	l, err := ParseResetLine("DTR")
	require.NoError(t, err)
	assert.Equal(t, ResetDTR, l)

	l, err = ParseResetLine(" rts ")
	require.NoError(t, err)
	assert.Equal(t, ResetRTS, l)
	assert.Equal(t, "rts", l.String())

	_, err = ParseResetLine("cts")
	assert.Error(t, err)
}

func TestOpenSerialRequiresPort(t *testing.T) {
	_, err := OpenSerial(SerialConfig{})
	assert.Error(t, err)
}

func TestSerialDefaults(t *testing.T) {
	s := newSerial(&fakePort{}, SerialConfig{Port: "/dev/null"})
	assert.Equal(t, 38400, s.cfg.BaudRate)
	assert.Equal(t, DefaultReadTimeout, s.cfg.ReadTimeout)
	assert.Equal(t, ResetDTR, s.cfg.ResetLine)
}

func TestSerialTransmitHandlesShortWrites(t *testing.T) {
	fp := &fakePort{maxWrite: 7}
	s := newSerial(fp, SerialConfig{Port: "test"})

	data := make([]byte, 101)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, s.Transmit(data))
	assert.Equal(t, data, fp.written)
}

func TestSerialReceive(t *testing.T) {
	fp := &fakePort{input: [][]byte{[]byte("qK")}}
	s := newSerial(fp, SerialConfig{Port: "test", ReadTimeout: 5 * time.Millisecond})

	_, err := s.Receive()
	require.Error(t, err, "receive before open")

	require.NoError(t, s.OpenReceiver())
	assert.Equal(t, 5*time.Millisecond, fp.readTimeout)

	got, err := s.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte("qK"), got)

	got, err = s.Receive()
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.CloseReceiver())
	_, err = s.Receive()
	assert.Error(t, err)
}

func TestSerialReceiveError(t *testing.T) {
	fp := &fakePort{readErr: errors.New("device removed")}
	s := newSerial(fp, SerialConfig{Port: "test"})
	require.NoError(t, s.OpenReceiver())

	_, err := s.Receive()
	assert.ErrorContains(t, err, "device removed")
}

func TestSerialSetReset(t *testing.T) {
	fp := &fakePort{}
	dtr := newSerial(fp, SerialConfig{Port: "test"})
	require.NoError(t, dtr.SetReset(true))
	require.NoError(t, dtr.SetReset(false))
	assert.Equal(t, []bool{true, false}, fp.dtr)
	assert.Empty(t, fp.rts)

	fp = &fakePort{}
	rts := newSerial(fp, SerialConfig{Port: "test", ResetLine: ResetRTS})
	require.NoError(t, rts.SetReset(true))
	assert.Equal(t, []bool{true}, fp.rts)
	assert.Empty(t, fp.dtr)
}

func TestSerialFlushAndClose(t *testing.T) {
	fp := &fakePort{}
	s := newSerial(fp, SerialConfig{Port: "test"})

	require.NoError(t, s.Flush())
	assert.Equal(t, 1, fp.inFlushed)
	assert.Equal(t, 1, fp.outFlushed)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, fp.closed)
}
