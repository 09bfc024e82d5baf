package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/moffa90/go-dsboot/firmware"
	"github.com/moffa90/go-dsboot/transport"
)

// Address is a device word address that accepts decimal or 0x-prefixed hex.
type Address uint32

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(strings.TrimSpace(string(text)), 0, 32)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", text, err)
	}
	*a = Address(v)
	return nil
}

func (a Address) String() string {
	return fmt.Sprintf("0x%05X", uint32(a))
}

// Config holds process configuration from environment variables.
// Command line flags override these values.
type Config struct {
	Port            string        `env:"DSBOOT_PORT" envDefault:""`
	Baud            int           `env:"DSBOOT_BAUD" envDefault:"38400"`
	ResetLine       string        `env:"DSBOOT_RESET_LINE" envDefault:"dtr"`
	Retries         int           `env:"DSBOOT_RETRIES" envDefault:"3"`
	AckTimeout      time.Duration `env:"DSBOOT_ACK_TIMEOUT" envDefault:"0s"`
	BootloaderEntry Address       `env:"DSBOOT_BOOTLOADER_ENTRY" envDefault:"0x17C00"`
	ConfigAddress   Address       `env:"DSBOOT_CONFIG_ADDRESS" envDefault:"0x17F00"`
	LogLevel        string        `env:"DSBOOT_LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values that cannot be caught by parsing.
func (c *Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.Baud)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be >= 0, got %d", c.Retries)
	}
	if c.AckTimeout < 0 {
		return fmt.Errorf("ack timeout must be >= 0, got %s", c.AckTimeout)
	}
	if _, err := transport.ParseResetLine(c.ResetLine); err != nil {
		return err
	}
	if err := c.Layout().Validate(); err != nil {
		return err
	}
	return nil
}

// Layout returns the device layout described by the configuration.
func (c *Config) Layout() firmware.Layout {
	return firmware.Layout{
		BootloaderEntry: uint32(c.BootloaderEntry),
		ConfigAddress:   uint32(c.ConfigAddress),
	}
}

// Serial returns the serial link configuration.
// Validate must have succeeded.
func (c *Config) Serial() transport.SerialConfig {
	line, _ := transport.ParseResetLine(c.ResetLine)
	return transport.SerialConfig{
		Port:      c.Port,
		BaudRate:  c.Baud,
		ResetLine: line,
	}
}
