// Package transport implements bootloader links.
//
// Serial talks to a real device through go.bug.st/serial at 38400 baud, 8 data
// bits, no parity and one stop bit. The device reset pin is driven from DTR or
// RTS. Receive never blocks longer than the configured read timeout, so the
// programmer can poll for replies and honor cancellation.
//
// The sim subpackage provides an in-memory bootloader for tests and dry runs.
package transport
