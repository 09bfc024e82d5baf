package bootloader

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/moffa90/go-dsboot/firmware"
)

// Link is a Transport that owns an underlying resource such as a serial port.
type Link interface {
	Transport
	io.Closer
}

// Session owns a Link for the lifetime of one programming run.
// The link is closed exactly once, however the run ends.
type Session struct {
	link Link
	prog *Programmer

	closeOnce sync.Once
	closeErr  error
}

// NewSession binds a programmer to link.
func NewSession(link Link, opts ...Option) *Session {
	return &Session{
		link: link,
		prog: New(link, opts...),
	}
}

// Programmer returns the session's programmer.
func (s *Session) Programmer() *Programmer {
	return s.prog
}

// Run flashes the bundle and closes the link before returning.
func (s *Session) Run(ctx context.Context, b *firmware.Bundle) error {
	err := s.prog.Flash(ctx, b)
	if cerr := s.Close(); cerr != nil {
		err = errors.Join(err, &TransportUnavailableError{Op: "close", Err: cerr})
	}
	return err
}

// Close releases the link. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.link.Close()
	})
	return s.closeErr
}
