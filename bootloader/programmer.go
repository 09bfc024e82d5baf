package bootloader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/moffa90/go-dsboot/firmware"
	"github.com/moffa90/go-dsboot/protocol"
)

// Programmer drives the bootloader session state machine over a Transport.
//
// A Programmer runs one session at a time. State may be read concurrently.
type Programmer struct {
	link   Transport
	config Config
	state  atomic.Int32
}

// New creates a new Programmer with the given transport and options.
//
// Example:
//
//	link, _ := transport.OpenSerial(transport.SerialConfig{Port: "/dev/ttyUSB0"})
//	prog := bootloader.New(link,
//	    bootloader.WithProgressCallback(progressFunc),
//	    bootloader.WithRetries(3),
//	)
func New(link Transport, opts ...Option) *Programmer {
	if link == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Programmer{
		link:   link,
		config: cfg,
	}
}

// State returns the current session state.
func (p *Programmer) State() State {
	return State(p.state.Load())
}

// Flash encodes a bundle and programs it. See Program.
func (p *Programmer) Flash(ctx context.Context, b *firmware.Bundle) error {
	seq, err := BuildSequence(b)
	if err != nil {
		p.setState(StateFailed)
		return err
	}
	for _, s := range seq.Dropped {
		p.logInfo("skipping segment outside program range",
			"address", fmt.Sprintf("0x%06X", s.Address),
			"bytes", len(s.Data),
		)
	}
	return p.Program(ctx, seq.Packets)
}

// Program performs the complete session:
//  1. Reset the device and flush the link
//  2. Probe until the bootloader answers the handshake
//  3. Send every packet and wait for its acknowledgement
//  4. Send the termination sequence
//
// Handshake timeouts, rejected checksums and unexpected replies restart the whole
// session from step 1 while retries remain. Progress from a failed attempt is
// discarded. The receive channel is closed before every retry and before returning.
//
// The operation can be cancelled via context.
func (p *Programmer) Program(ctx context.Context, packets []protocol.Packet) error {
	if len(packets) == 0 {
		p.setState(StateFailed)
		return &ConfigError{Field: "packets", Err: fmt.Errorf("no packets to send")}
	}

	startTime := time.Now()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			p.setState(StateFailed)
			return fmt.Errorf("cancelled: %w", err)
		}

		err := p.runSession(ctx, packets, attempt, startTime)
		if err == nil {
			break
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			p.setState(StateFailed)
			if !errors.Is(err, ctxErr) {
				err = errors.Join(ctxErr, err)
			}
			return fmt.Errorf("cancelled: %w", err)
		}

		if !IsRetryable(err) || attempt > p.config.Retries {
			p.setState(StateFailed)
			p.logError("programming failed", "attempt", attempt, "error", err)
			return fmt.Errorf("attempt %d: %w", attempt, err)
		}

		p.logInfo("session failed, retrying",
			"attempt", attempt,
			"retries_left", p.config.Retries-attempt+1,
			"error", err,
		)
	}

	p.setState(StateDone)
	p.reportProgress(Progress{
		State:         StateDone,
		CurrentPacket: len(packets),
		TotalPackets:  len(packets),
		Percentage:    100,
		ElapsedTime:   time.Since(startTime),
	})

	p.logInfo("programming complete",
		"packets", len(packets),
		"elapsed", time.Since(startTime).String(),
	)

	return nil
}

// runSession performs a single attempt with the receive channel held open.
func (p *Programmer) runSession(ctx context.Context, packets []protocol.Packet, attempt int, startTime time.Time) (err error) {
	if err := p.link.OpenReceiver(); err != nil {
		return &TransportUnavailableError{Op: "open receiver", Err: err}
	}
	defer func() {
		if cerr := p.link.CloseReceiver(); cerr != nil && err == nil {
			err = &TransportUnavailableError{Op: "close receiver", Err: cerr}
		}
	}()

	if err := p.connect(ctx); err != nil {
		return err
	}

	if err := p.stream(ctx, packets, attempt, startTime); err != nil {
		return err
	}

	p.setState(StateTerminating)
	if err := p.link.Transmit(protocol.TerminationSequence); err != nil {
		return &TransportUnavailableError{Op: "send termination", Err: err}
	}

	return nil
}

// connect resets the device and probes for the bootloader.
func (p *Programmer) connect(ctx context.Context) error {
	probes := 0

	for r := 1; r <= p.config.ResetAttempts; r++ {
		p.setState(StateResetting)
		if err := p.reset(ctx); err != nil {
			return err
		}

		p.setState(StateAwaitingHandshake)
		for h := 1; h <= p.config.HandshakeAttempts; h++ {
			probes++

			if err := p.link.Transmit([]byte{protocol.HandshakeProbe}); err != nil {
				return &TransportUnavailableError{Op: "send handshake", Err: err}
			}

			if err := sleep(ctx, p.config.HandshakeDelay); err != nil {
				return err
			}

			reply, err := p.link.Receive()
			if err != nil {
				return &TransportUnavailableError{Op: "receive handshake", Err: err}
			}

			ok, reason := protocol.ParseHandshakeReply(reply)
			if ok {
				p.logDebug("bootloader answered", "reset", r, "probe", h)
				return nil
			}

			p.logDebug("no handshake yet",
				"reset", r,
				"probe", h,
				"reply", fmt.Sprintf("% X", reply),
				"reason", reason,
			)
		}
	}

	return &HandshakeTimeoutError{
		ResetAttempts: p.config.ResetAttempts,
		Probes:        probes,
	}
}

// reset pulses the reset line and discards stale bytes.
func (p *Programmer) reset(ctx context.Context) error {
	if err := p.link.SetReset(true); err != nil {
		return &TransportUnavailableError{Op: "assert reset", Err: err}
	}
	if err := p.link.Flush(); err != nil {
		return &TransportUnavailableError{Op: "flush", Err: err}
	}
	if err := sleep(ctx, p.config.ResetPulse); err != nil {
		// Do not leave the device held in reset.
		if rerr := p.link.SetReset(false); rerr != nil {
			return errors.Join(err, &TransportUnavailableError{Op: "release reset", Err: rerr})
		}
		return err
	}
	if err := p.link.SetReset(false); err != nil {
		return &TransportUnavailableError{Op: "release reset", Err: err}
	}
	return nil
}

// stream sends every packet and checks its acknowledgement.
func (p *Programmer) stream(ctx context.Context, packets []protocol.Packet, attempt int, startTime time.Time) error {
	p.setState(StateStreaming)

	for i := range packets {
		if err := ctx.Err(); err != nil {
			return err
		}

		pkt := &packets[i]
		if err := p.link.Transmit(pkt.Bytes()); err != nil {
			return &TransportUnavailableError{Op: fmt.Sprintf("send packet %d", i), Err: err}
		}

		reply, err := p.awaitReply(ctx, i, pkt.Address())
		if err != nil {
			return err
		}

		switch protocol.ParseAckReply(reply) {
		case protocol.AckOK:
		case protocol.AckRejected:
			return &ChecksumRejectedError{Packet: i, Address: pkt.Address()}
		default:
			return &ProtocolViolationError{Packet: i, Address: pkt.Address(), Reply: reply}
		}

		p.reportProgress(Progress{
			State:         StateStreaming,
			Attempt:       attempt,
			CurrentPacket: i + 1,
			TotalPackets:  len(packets),
			Address:       pkt.Address(),
			Percentage:    float64(i+1) / float64(len(packets)) * 100,
			ElapsedTime:   time.Since(startTime),
		})
	}

	return nil
}

// awaitReply polls the receiver until at least one byte arrives.
// Without an AckTimeout it waits until the device replies or ctx is done.
func (p *Programmer) awaitReply(ctx context.Context, index int, address uint32) ([]byte, error) {
	var deadline time.Time
	if p.config.AckTimeout > 0 {
		deadline = time.Now().Add(p.config.AckTimeout)
	}

	for {
		reply, err := p.link.Receive()
		if err != nil {
			return nil, &TransportUnavailableError{Op: fmt.Sprintf("receive reply to packet %d", index), Err: err}
		}
		if len(reply) > 0 {
			return reply, nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, &AckTimeoutError{Packet: index, Address: address, Timeout: p.config.AckTimeout}
		}

		if err := sleep(ctx, p.config.PollInterval); err != nil {
			return nil, err
		}
	}
}

func (p *Programmer) setState(s State) {
	from := State(p.state.Swap(int32(s)))
	if from == s {
		return
	}
	p.logDebug("state", "from", from.String(), "to", s.String())
	if p.config.StateCallback != nil {
		p.config.StateCallback(from, s)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// reportProgress calls the progress callback if configured.
func (p *Programmer) reportProgress(progress Progress) {
	if p.config.ProgressCallback != nil {
		p.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (p *Programmer) logDebug(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (p *Programmer) logInfo(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (p *Programmer) logError(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Error(msg, keysAndValues...)
	}
}
