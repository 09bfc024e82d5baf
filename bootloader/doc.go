// Package bootloader drives the serial bootloader of dsPIC33 and PIC24 devices.
//
// # Overview
//
// A programming session runs through these states:
//
//	Idle -> Resetting -> AwaitingHandshake -> Streaming -> Terminating -> Done
//
// Any state may end in Failed. The programmer:
//   - Pulses the reset line and flushes stale bytes
//   - Sends the 0xC1 probe until the device answers "qK"
//   - Streams 101-byte packets, waiting for a "K" after each one
//   - Sends the termination sequence 95 00 00 FF
//
// A handshake timeout, a rejected checksum ("N") or any other reply restarts the
// whole session from Resetting while retries remain.
//
// # Basic Usage
//
//	img, err := hexfile.Parse("firmware.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bundle, err := firmware.Build(img, 1234, firmware.DefaultLayout())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	link, err := transport.OpenSerial(transport.SerialConfig{Port: "/dev/ttyUSB0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sess := bootloader.NewSession(link)
//	if err := sess.Run(context.Background(), bundle); err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
//	prog := bootloader.New(link,
//	    bootloader.WithProgressCallback(func(p bootloader.Progress) {
//	        fmt.Printf("%.1f%% (%d/%d)\n", p.Percentage, p.CurrentPacket, p.TotalPackets)
//	    }),
//	)
//
// # Error Handling
//
// Errors are typed. Use errors.As to inspect them:
//
//	var hs *bootloader.HandshakeTimeoutError
//	if errors.As(err, &hs) {
//	    fmt.Printf("device silent after %d probes\n", hs.Probes)
//	}
//
// IsRetryable reports which errors restart the session. Configuration and
// transport errors never do.
//
// # Transport
//
// The Transport interface abstracts the serial link. See the transport package
// for a go.bug.st/serial implementation and transport/sim for a simulated device.
package bootloader
