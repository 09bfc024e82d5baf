package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-dsboot/bootloader"
	"github.com/moffa90/go-dsboot/firmware"
	"github.com/moffa90/go-dsboot/hexfile"
)

func writeFirmware(t *testing.T) string {
	t.Helper()
	data := make([]byte, 256)
	copy(data, []byte{0x00, 0x02, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00})
	for i := 8; i < len(data); i++ {
		data[i] = byte(i)
	}
	img, err := firmware.NewImage(firmware.Segment{Address: 0, Data: data})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "firmware.hex")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, hexfile.Write(f, img, 16))
	require.NoError(t, f.Close())
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("DSBOOT_PORT", "")

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())
	log.SetOutput(os.Stderr)
	return stdout.String(), stderr.String(), err
}

func TestDumpImageToStdout(t *testing.T) {
	out, _, err := execute(t, "dump", writeFirmware(t), "--id", "1234")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 16+8)
	assert.True(t, strings.HasPrefix(lines[0], "000000: 00 7C 04 00 01 00 00 00"), lines[0])
	assert.True(t, strings.HasPrefix(lines[16], "02FE00: "), lines[16])
}

func TestDumpPacketsAndHexToFiles(t *testing.T) {
	dir := t.TempDir()
	packets := filepath.Join(dir, "packets.txt")
	hex := filepath.Join(dir, "programmed.hex")

	out, _, err := execute(t, "dump", writeFirmware(t), "--id", "0042", "--packets", packets, "--hex", hex)
	require.NoError(t, err)
	assert.Empty(t, out)

	raw, err := os.ReadFile(packets)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[2], "00 7F 01 60"), lines[2])

	img, err := hexfile.Parse(hex)
	require.NoError(t, err)
	segs := img.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, uint32(0x2FE00), segs[1].Address)
	assert.Len(t, segs[1].Data, firmware.ConfigBlockSize)
}

func TestFlashSimulated(t *testing.T) {
	_, logs, err := execute(t, "flash", writeFirmware(t), "--id", "1234", "--simulate", "--retries", "0")
	require.NoError(t, err)
	assert.Contains(t, logs, "device programmed")
	assert.Contains(t, logs, "terminated=true")
}

func TestFlashRejectsBadIdentity(t *testing.T) {
	_, _, err := execute(t, "flash", writeFirmware(t), "--id", "12", "--simulate")

	var cfgErr *bootloader.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "identity", cfgErr.Field)
}

func TestFlashRequiresPort(t *testing.T) {
	_, _, err := execute(t, "flash", writeFirmware(t), "--id", "1234")

	var cfgErr *bootloader.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "port", cfgErr.Field)
}

func TestFlashMissingFile(t *testing.T) {
	_, _, err := execute(t, "flash", filepath.Join(t.TempDir(), "missing.hex"), "--id", "1234", "--simulate")

	var cfgErr *bootloader.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "image", cfgErr.Field)
}

func TestFlashInvalidResetLine(t *testing.T) {
	_, _, err := execute(t, "flash", writeFirmware(t), "--id", "1234", "--reset-line", "cts")
	assert.ErrorContains(t, err, "reset line")
}

func TestFields(t *testing.T) {
	f := fields([]interface{}{"packet", 3, "address", "0x000040", "dangling"})
	assert.Equal(t, log.Fields{"packet": 3, "address": "0x000040", "extra": "dangling"}, f)
}
