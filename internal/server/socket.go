package server

import (
	"errors"

	"golang.org/x/sys/unix"
)

var ErrSocketClosed = errors.New("socket already closed")

// Socket is a non-blocking stream socket owned by exactly one
// connection. Read and Write return unix.EAGAIN when they would block.
type Socket interface {
	Fd() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	// PendingError fetches and clears SO_ERROR.
	PendingError() error
	Close() error
}

// fdSocket is a Socket over a raw descriptor.
type fdSocket struct {
	fd     int
	closed bool
}

// NewFdSocket takes ownership of fd and switches it to non-blocking.
func NewFdSocket(fd int) (Socket, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, err
	}
	return &fdSocket{fd: fd}, nil
}

func (s *fdSocket) Fd() int {
	return s.fd
}

func (s *fdSocket) Read(p []byte) (int, error) {
	n, err := unix.Read(s.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *fdSocket) Write(p []byte) (int, error) {
	n, err := unix.Write(s.fd, p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *fdSocket) PendingError() error {
	code, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if code == 0 {
		return nil
	}
	return unix.Errno(code)
}

func (s *fdSocket) Close() error {
	if s.closed {
		return ErrSocketClosed
	}
	s.closed = true
	return unix.Close(s.fd)
}
