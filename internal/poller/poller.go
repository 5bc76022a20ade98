// Package poller reports which sockets are ready for reading, writing
// or have an exceptional condition, using poll(2).
package poller

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Interest is a bit set of readiness conditions.
type Interest uint8

const (
	Read Interest = 1 << iota
	Write
	Except
)

func (in Interest) Has(other Interest) bool {
	return in&other == other
}

func (in Interest) String() string {
	if in == 0 {
		return "none"
	}
	var parts []string
	if in.Has(Read) {
		parts = append(parts, "read")
	}
	if in.Has(Write) {
		parts = append(parts, "write")
	}
	if in.Has(Except) {
		parts = append(parts, "except")
	}
	return strings.Join(parts, "|")
}

// Set is the input and output of one readiness query. It is rebuilt on
// every loop iteration: Reset, Add each socket, Wait, then Ready.
type Set struct {
	fds   []unix.PollFd
	index map[int]int
}

func NewSet() *Set {
	return &Set{
		index: make(map[int]int),
	}
}

// Reset empties the set, keeping its storage.
func (s *Set) Reset() {
	s.fds = s.fds[:0]
	clear(s.index)
}

// Add registers fd with the given interests. Adding the same fd twice
// merges the interests.
func (s *Set) Add(fd int, in Interest) {
	if i, ok := s.index[fd]; ok {
		s.fds[i].Events |= toEvents(in)
		return
	}
	s.index[fd] = len(s.fds)
	s.fds = append(s.fds, unix.PollFd{Fd: int32(fd), Events: toEvents(in)})
}

func (s *Set) Len() int {
	return len(s.fds)
}

// Each calls fn with every fd and the interests it was added with.
func (s *Set) Each(fn func(fd int, want Interest)) {
	for _, pfd := range s.fds {
		fn(int(pfd.Fd), fromEvents(pfd.Events))
	}
}

// Ready returns what fired for fd in the last Wait.
func (s *Set) Ready(fd int) Interest {
	i, ok := s.index[fd]
	if !ok {
		return 0
	}
	return fromEvents(s.fds[i].Revents)
}

// Mark records readiness for fd as if the kernel had reported it.
// Multiplexer implementations other than Poll use it to fill results.
func (s *Set) Mark(fd int, in Interest) {
	if i, ok := s.index[fd]; ok {
		s.fds[i].Revents |= toEvents(in)
	}
}

func (s *Set) clearResults() {
	for i := range s.fds {
		s.fds[i].Revents = 0
	}
}

func toEvents(in Interest) int16 {
	var ev int16
	if in.Has(Read) {
		ev |= unix.POLLIN
	}
	if in.Has(Write) {
		ev |= unix.POLLOUT
	}
	if in.Has(Except) {
		ev |= unix.POLLPRI
	}
	return ev
}

// fromEvents folds hang-up into read readiness so that the following
// read observes end of stream, and reports errors as exceptions.
func fromEvents(rev int16) Interest {
	var in Interest
	if rev&(unix.POLLIN|unix.POLLHUP) != 0 {
		in |= Read
	}
	if rev&unix.POLLOUT != 0 {
		in |= Write
	}
	if rev&(unix.POLLPRI|unix.POLLERR|unix.POLLNVAL) != 0 {
		in |= Except
	}
	return in
}

// Multiplexer blocks until some socket in the set is actionable or the
// timeout elapses, and returns how many sockets have results.
type Multiplexer interface {
	Wait(set *Set, timeout time.Duration) (int, error)
}

// Poll is the poll(2) Multiplexer.
type Poll struct{}

func New() *Poll {
	return &Poll{}
}

// Wait treats an interrupted call as an empty result. Any other
// failure is returned: it means a bad descriptor table or exhausted
// resources, and the loop cannot continue.
func (p *Poll) Wait(set *Set, timeout time.Duration) (int, error) {
	set.clearResults()

	ms := int(timeout / time.Millisecond)
	if timeout > 0 && ms == 0 {
		ms = 1
	}

	n, err := unix.Poll(set.fds, ms)
	if err != nil {
		if err == unix.EINTR {
			set.clearResults()
			return 0, nil
		}
		return 0, fmt.Errorf("poll %d fds: %w", len(set.fds), err)
	}
	return n, nil
}
