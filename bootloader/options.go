package bootloader

import "time"

// Config holds the programmer configuration.
type Config struct {
	// ProgressCallback is called during programming to report progress (optional)
	ProgressCallback ProgressCallback

	// StateCallback is called on every state transition (optional)
	StateCallback StateCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// Retries is the number of times the whole session is restarted after a
	// retryable failure
	Retries int

	// ResetAttempts is the number of reset cycles tried per handshake
	ResetAttempts int

	// HandshakeAttempts is the number of probes sent per reset cycle
	HandshakeAttempts int

	// ResetPulse is how long the reset line is held asserted
	ResetPulse time.Duration

	// HandshakeDelay is the wait between sending a probe and polling for the reply
	HandshakeDelay time.Duration

	// PollInterval is the wait between receive polls while awaiting an acknowledgement
	PollInterval time.Duration

	// AckTimeout bounds the wait for a packet acknowledgement.
	// Zero waits indefinitely.
	AckTimeout time.Duration
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Retries:           3,
		ResetAttempts:     5,
		HandshakeAttempts: 5,
		ResetPulse:        100 * time.Millisecond,
		HandshakeDelay:    100 * time.Millisecond,
		PollInterval:      2 * time.Millisecond,
	}
}

// Option is a functional option for configuring the Programmer.
type Option func(*Config)

// WithProgressCallback sets a callback function to track programming progress.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithStateCallback sets a callback invoked on every state transition.
func WithStateCallback(callback StateCallback) Option {
	return func(c *Config) {
		c.StateCallback = callback
	}
}

// WithLogger sets a logger for the programmer operations.
//
// Example:
//
//	prog := bootloader.New(link, bootloader.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithRetries sets the number of session restarts after a retryable failure.
//
// Example:
//
//	prog := bootloader.New(link, bootloader.WithRetries(5))
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.Retries = retries
		}
	}
}

// WithResetAttempts sets the number of reset cycles per handshake.
func WithResetAttempts(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.ResetAttempts = attempts
		}
	}
}

// WithHandshakeAttempts sets the number of probes sent per reset cycle.
func WithHandshakeAttempts(attempts int) Option {
	return func(c *Config) {
		if attempts > 0 {
			c.HandshakeAttempts = attempts
		}
	}
}

// WithResetPulse sets how long the reset line is held.
func WithResetPulse(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.ResetPulse = d
		}
	}
}

// WithHandshakeDelay sets the wait between a probe and the reply poll.
func WithHandshakeDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.HandshakeDelay = d
		}
	}
}

// WithPollInterval sets the wait between receive polls for an acknowledgement.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.PollInterval = d
		}
	}
}

// WithAckTimeout bounds the wait for each packet acknowledgement.
// The default of zero blocks until the device replies or the context ends.
//
// Example:
//
//	prog := bootloader.New(link, bootloader.WithAckTimeout(2*time.Second))
func WithAckTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.AckTimeout = d
		}
	}
}
