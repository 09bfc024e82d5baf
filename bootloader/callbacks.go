package bootloader

import "time"

// Progress contains information about the programming progress.
// Passed to ProgressCallback during programming operations.
type Progress struct {
	// State is the current session state
	State State

	// Attempt is the 1-based session attempt; it increases on every retry
	Attempt int

	// CurrentPacket is the number of packets acknowledged in this attempt
	CurrentPacket int

	// TotalPackets is the total number of packets to send
	TotalPackets int

	// Address is the device word address of the last acknowledged packet
	Address uint32

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// ElapsedTime is the time elapsed since programming started
	ElapsedTime time.Duration
}

// ProgressCallback is called after every acknowledged packet and on state changes.
// Implementations should return quickly to avoid stalling the link.
//
// Example:
//
//	prog := bootloader.New(link,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - packet %d/%d\n",
//	            p.State, p.Percentage, p.CurrentPacket, p.TotalPackets)
//	    }),
//	)
type ProgressCallback func(Progress)

// StateCallback is called on every state transition.
type StateCallback func(from, to State)

// Logger is an optional logging interface that can be provided to the programmer.
// This allows integration with any logging framework.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
