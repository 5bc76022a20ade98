package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Brownie44l1/statusd/internal/poller"
)

var (
	ErrTooManyConnections = errors.New("too many connections")
	ErrDuplicateSocket    = errors.New("socket already registered")
	ErrServerClosed       = errors.New("server closed")
)

// Acceptor yields new client sockets when its descriptor is readable.
// Accept returns unix.EAGAIN once the backlog is empty.
type Acceptor interface {
	Fd() int
	Accept() (Socket, error)
	Close() error
}

// Server is the connection registry and its loop. Everything it owns
// is touched only from the goroutine running Serve or Step.
type Server struct {
	cfg      Config
	pages    PageProvider
	mux      poller.Multiplexer
	acceptor Acceptor

	conns   map[int]*Conn
	nextSeq uint64
	set     *poller.Set
	opts    *connOptions
	now     func() time.Time
	closed  bool

	// acceptPausedUntil keeps the listener out of the readiness query
	// after a failed accept, so a persistent error such as EMFILE does
	// not spin the loop.
	acceptPausedUntil time.Time

	Logger  Logger
	metrics *Metrics
}

type Option func(*Server)

func WithMultiplexer(m poller.Multiplexer) Option {
	return func(s *Server) { s.mux = m }
}

// WithAcceptor makes the Server poll and own a listening socket.
func WithAcceptor(a Acceptor) Option {
	return func(s *Server) { s.acceptor = a }
}

func WithLogger(l Logger) Option {
	return func(s *Server) { s.Logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a Server. cfg is expected to have passed Validate.
func New(cfg Config, pages PageProvider, options ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		pages:   pages,
		mux:     poller.New(),
		conns:   make(map[int]*Conn),
		nextSeq: 1,
		set:     poller.NewSet(),
		now:     time.Now,
		Logger:  NewDefaultLogger(),
		metrics: NewMetrics(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.opts = &connOptions{
		readBufferSize: cfg.ReadBufferSize,
		maxRequestLine: cfg.MaxRequestLineBytes,
		framing:        cfg.framing(),
		pool:           globalBufferPool,
		logger:         s.Logger,
		metrics:        s.metrics,
	}
	return s
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Len is the number of live connections.
func (s *Server) Len() int {
	return len(s.conns)
}

// Conn returns the live connection on fd, if any.
func (s *Server) Conn(fd int) (*Conn, bool) {
	c, ok := s.conns[fd]
	return c, ok
}

// ConnInfo describes one live connection for status pages.
type ConnInfo struct {
	Seq        uint64
	Fd         int
	State      ConnState
	Pending    int
	LastActive time.Time
}

// Connections lists live connections ordered by sequence number. Like
// every other registry method it must be called from the loop, which
// includes page providers.
func (s *Server) Connections() []ConnInfo {
	out := make([]ConnInfo, 0, len(s.conns))
	for fd, c := range s.conns {
		out = append(out, ConnInfo{
			Seq:        c.Seq(),
			Fd:         fd,
			State:      c.State(),
			Pending:    c.Pending(),
			LastActive: c.LastActive(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Add registers a freshly accepted socket and assigns it the next
// sequence number. On error the socket has been closed, except for a
// duplicate descriptor, which belongs to the live connection.
func (s *Server) Add(sock Socket) (*Conn, error) {
	if s.closed {
		sock.Close()
		return nil, ErrServerClosed
	}
	if len(s.conns) >= s.cfg.MaxConnections {
		sock.Close()
		s.metrics.ConnectionsRejected.Add(1)
		return nil, fmt.Errorf("%w: limit %d", ErrTooManyConnections, s.cfg.MaxConnections)
	}
	fd := sock.Fd()
	if _, ok := s.conns[fd]; ok {
		return nil, fmt.Errorf("%w: fd %d", ErrDuplicateSocket, fd)
	}

	c := newConn(s.nextSeq, sock, s.pages, s.opts, s.now())
	s.nextSeq++
	s.conns[fd] = c
	s.metrics.connOpened()

	s.Logger.Debug("connection accepted", c.fields()...)
	return c, nil
}

// Serve runs the loop until ctx is done or the multiplexer fails, then
// closes every connection. Cancellation is noticed between waits.
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.Step(); err != nil {
			return err
		}
	}
}

// Step runs one loop iteration: collect interests, wait, dispatch,
// accept, reap idle connections.
func (s *Server) Step() error {
	if s.closed {
		return ErrServerClosed
	}

	s.set.Reset()
	if s.acceptor != nil && !s.now().Before(s.acceptPausedUntil) {
		s.set.Add(s.acceptor.Fd(), poller.Read)
	}
	for fd, c := range s.conns {
		s.set.Add(fd, c.Interest())
	}

	if _, err := s.mux.Wait(s.set, s.cfg.PollTimeout); err != nil {
		return fmt.Errorf("wait for readiness: %w", err)
	}

	now := s.now()
	s.dispatch(now)
	if s.acceptor != nil && s.set.Ready(s.acceptor.Fd()).Has(poller.Read) {
		s.acceptAll(now)
	}
	s.reapIdle(now)
	return nil
}

type closing struct {
	conn   *Conn
	reason error
}

// dispatch hands readiness to each connection. Removal waits until the
// pass is over.
func (s *Server) dispatch(now time.Time) {
	var done []closing
	for fd, c := range s.conns {
		ready := s.set.Ready(fd)
		if ready == 0 {
			continue
		}
		if err := c.process(ready, now); err != nil {
			done = append(done, closing{conn: c, reason: err})
		}
	}
	for _, d := range done {
		s.remove(d.conn, d.reason)
	}
}

func (s *Server) acceptAll(now time.Time) {
	for {
		sock, err := s.acceptor.Accept()
		if err != nil {
			if !isWouldBlock(err) {
				s.acceptPausedUntil = now.Add(s.cfg.PollTimeout)
				s.Logger.Warn("accept failed; pausing accepts",
					Field{"error", err.Error()},
					Field{"pause", s.cfg.PollTimeout.String()},
				)
			}
			return
		}
		if _, err := s.Add(sock); err != nil {
			s.Logger.Warn("connection refused", Field{"error", err.Error()})
		}
	}
}

func (s *Server) reapIdle(now time.Time) {
	if s.cfg.IdleTimeout <= 0 {
		return
	}
	var idle []*Conn
	for _, c := range s.conns {
		if now.Sub(c.lastActive) > s.cfg.IdleTimeout {
			idle = append(idle, c)
		}
	}
	for _, c := range idle {
		s.metrics.IdleReaped.Add(1)
		s.Logger.Info("closing idle connection", c.fields(Field{"idle", now.Sub(c.lastActive).String()})...)
		s.remove(c, ErrIdleTimeout)
	}
}

// remove forgets c and closes its socket in the same step.
func (s *Server) remove(c *Conn, reason error) {
	delete(s.conns, c.Fd())
	if err := c.Close(); err != nil {
		s.Logger.Warn("close failed", c.fields(Field{"error", err.Error()})...)
	}
	s.metrics.connClosed()
	s.Logger.Debug("connection removed", c.fields(Field{"reason", reason.Error()})...)
}

// Close releases every connection and the acceptor. Further calls are
// no-ops.
func (s *Server) Close() error {
	if s.closed {
		return nil
	}
	for _, c := range s.conns {
		s.remove(c, ErrServerClosed)
	}
	s.closed = true

	if s.acceptor != nil {
		return s.acceptor.Close()
	}
	return nil
}
