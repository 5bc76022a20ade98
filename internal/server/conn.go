package server

import (
	"bytes"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Brownie44l1/statusd/internal/poller"
	"github.com/Brownie44l1/statusd/internal/request"
	"github.com/Brownie44l1/statusd/internal/response"
)

// Reasons a handler asks for its connection to be torn down.
var (
	ErrPeerClosed       = errors.New("connection closed by remote")
	ErrResponseComplete = errors.New("response flushed")
	ErrRequestTooLarge  = request.ErrRequestLineTooLarge
	ErrIdleTimeout      = errors.New("connection idle too long")
	ErrProviderPanic    = errors.New("page provider panicked")
	ErrSocketException  = errors.New("socket exception")
)

// PageProvider maps a requested path to page content. An empty result
// means there is no such page and the client is redirected. It runs on
// the loop and must not block.
type PageProvider interface {
	BuildPage(path string, seq uint64) []byte
}

type PageProviderFunc func(path string, seq uint64) []byte

func (f PageProviderFunc) BuildPage(path string, seq uint64) []byte {
	return f(path, seq)
}

// connOptions is shared by every connection of one Server.
type connOptions struct {
	readBufferSize int
	maxRequestLine int
	framing        response.Framing
	pool           *BufferPool
	logger         Logger
	metrics        *Metrics
}

// Conn is one client socket: it accumulates the request line, asks the
// page provider once, queues the framed response and drains it. Every
// handler returns nil to stay open or an error saying why to close.
type Conn struct {
	seq   uint64
	sock  Socket
	pages PageProvider
	opts  *connOptions

	req        *request.Request
	tx         bytes.Buffer
	state      ConnState
	lastActive time.Time
}

func newConn(seq uint64, sock Socket, pages PageProvider, opts *connOptions, now time.Time) *Conn {
	return &Conn{
		seq:        seq,
		sock:       sock,
		pages:      pages,
		opts:       opts,
		req:        request.New(opts.maxRequestLine),
		state:      StateAwaitingRequest,
		lastActive: now,
	}
}

func (c *Conn) Seq() uint64 {
	return c.seq
}

func (c *Conn) Fd() int {
	return c.sock.Fd()
}

func (c *Conn) State() ConnState {
	return c.state
}

// Pending is the number of response bytes not yet flushed.
func (c *Conn) Pending() int {
	return c.tx.Len()
}

func (c *Conn) LastActive() time.Time {
	return c.lastActive
}

// Interest is always read and except; write only while bytes are queued.
func (c *Conn) Interest() poller.Interest {
	in := poller.Read | poller.Except
	if c.tx.Len() > 0 {
		in |= poller.Write
	}
	return in
}

func (c *Conn) fields(extra ...Field) []Field {
	return append([]Field{{"conn", c.seq}, {"fd", c.sock.Fd()}}, extra...)
}

// process handles one readiness result.
func (c *Conn) process(ready poller.Interest, now time.Time) error {
	if ready.Has(poller.Except) {
		return c.HandleException()
	}
	if ready.Has(poller.Read) {
		if err := c.HandleRead(now); err != nil {
			return err
		}
	}
	if ready.Has(poller.Write) && c.tx.Len() > 0 {
		return c.HandleWrite(now)
	}
	return nil
}

// HandleException reads the pending socket error and always closes.
func (c *Conn) HandleException() error {
	code := c.sock.PendingError()
	c.opts.metrics.IOErrors.Add(1)
	c.opts.logger.Info("exception reading from socket; closing connection", c.fields(Field{"code", errnoCode(code)})...)
	if code != nil {
		return fmt.Errorf("%w: %w", ErrSocketException, code)
	}
	return ErrSocketException
}

// HandleRead performs one bounded read and, until a request line has
// been found, a parse attempt.
func (c *Conn) HandleRead(now time.Time) error {
	buf := c.opts.pool.Get(c.opts.readBufferSize)
	defer c.opts.pool.Put(buf)

	n, err := c.sock.Read(buf)
	if err != nil {
		if isWouldBlock(err) {
			c.opts.logger.Debug("no data ready to read", c.fields()...)
			return nil
		}
		c.opts.metrics.IOErrors.Add(1)
		c.opts.logger.Info(describeReadError(err), c.fields()...)
		c.opts.logger.Info("failed read", c.fields(Field{"error", err.Error()})...)
		return fmt.Errorf("read: %w", err)
	}
	if n == 0 {
		c.opts.logger.Info("connection closed by remote", c.fields()...)
		return ErrPeerClosed
	}

	c.opts.metrics.BytesRead.Add(int64(n))
	c.lastActive = now

	done, err := c.req.Feed(buf[:n])
	if err != nil {
		c.opts.metrics.OversizeDrops.Add(1)
		c.opts.logger.Warn("request line not found within limit", c.fields(Field{"error", err.Error()})...)
		return err
	}
	if !done || c.state != StateAwaitingRequest {
		return nil
	}
	return c.respond()
}

// respond runs at most once per connection: the state change to
// responding is made before the provider is called.
func (c *Conn) respond() error {
	next, err := transition(c.state, StateResponding)
	if err != nil {
		return err
	}
	c.state = next

	path := c.req.Path
	c.opts.logger.Debug("parse found URI", c.fields(Field{"path", path})...)

	page, err := c.buildPage(path)
	if err != nil {
		return err
	}

	code, err := c.opts.framing.WritePage(&c.tx, page)
	if err != nil {
		return fmt.Errorf("frame response: %w", err)
	}
	c.opts.metrics.recordResponse(code)
	return nil
}

func (c *Conn) buildPage(path string) (page []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.opts.logger.Error("page provider panic",
				c.fields(
					Field{"path", path},
					Field{"error", r},
					Field{"stack", string(debug.Stack())},
				)...,
			)
			err = fmt.Errorf("%w: %v", ErrProviderPanic, r)
		}
	}()
	return c.pages.BuildPage(path, c.seq), nil
}

// HandleWrite tries to flush everything queued in one call. A full
// flush ends the connection; a partial one keeps the unsent suffix.
func (c *Conn) HandleWrite(now time.Time) error {
	if c.tx.Len() == 0 {
		return nil
	}

	n, err := c.sock.Write(c.tx.Bytes())
	if err != nil {
		if isWouldBlock(err) {
			return nil
		}
		c.opts.metrics.IOErrors.Add(1)
		c.opts.logger.Info("failed write", c.fields(Field{"error", err.Error()})...)
		return fmt.Errorf("write: %w", err)
	}

	c.opts.metrics.BytesWritten.Add(int64(n))
	if n > 0 {
		c.lastActive = now
	}

	if n >= c.tx.Len() {
		c.tx.Reset()
		c.opts.logger.Debug("wrote it all", c.fields(Field{"bytes", n})...)
		return ErrResponseComplete
	}

	c.tx.Next(n)
	c.opts.logger.Debug("partial write", c.fields(Field{"bytes", n}, Field{"remaining", c.tx.Len()})...)
	return nil
}

// Close releases the socket. It is safe to call more than once; only
// the first call reaches the socket.
func (c *Conn) Close() error {
	if c.state == StateClosed {
		return nil
	}
	next, err := transition(c.state, StateClosed)
	if err != nil {
		return err
	}
	c.state = next
	c.tx.Reset()
	return c.sock.Close()
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

func describeReadError(err error) string {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return "read failed with a non-system error"
	}
	switch errno {
	case unix.EINTR:
		return "read interrupted by a signal before any data arrived"
	case unix.EIO:
		return "I/O error"
	case unix.EBADF:
		return "descriptor is not valid or not open for reading"
	case unix.EINVAL:
		return "descriptor is unsuitable for reading"
	case unix.EFAULT:
		return "read buffer is outside the accessible address space"
	default:
		return "read failed"
	}
}

func errnoCode(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}
