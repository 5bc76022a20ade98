package server

import (
	"bytes"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Brownie44l1/statusd/internal/poller"
	"github.com/Brownie44l1/statusd/internal/response"
)

type readResult struct {
	data []byte
	err  error
}

func chunk(s string) readResult    { return readResult{data: []byte(s)} }
func eof() readResult              { return readResult{data: []byte{}} }
func readErr(err error) readResult { return readResult{err: err} }

// fakeSocket replays scripted reads and records writes. An empty read
// script means "would block".
type fakeSocket struct {
	fd          int
	reads       []readResult
	writeLimits []int
	writeErr    error
	pendingErr  error

	out        bytes.Buffer
	writes     int
	closeCount int
}

func newFakeSocket(fd int, reads ...readResult) *fakeSocket {
	return &fakeSocket{fd: fd, reads: reads}
}

func (f *fakeSocket) Fd() int { return f.fd }

func (f *fakeSocket) Read(p []byte) (int, error) {
	if len(f.reads) == 0 {
		return 0, unix.EAGAIN
	}
	r := f.reads[0]
	if r.err != nil {
		f.reads = f.reads[1:]
		return 0, r.err
	}
	n := copy(p, r.data)
	if n < len(r.data) {
		f.reads[0].data = r.data[n:]
	} else {
		f.reads = f.reads[1:]
	}
	return n, nil
}

func (f *fakeSocket) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	n := len(p)
	if len(f.writeLimits) > 0 {
		if f.writeLimits[0] < n {
			n = f.writeLimits[0]
		}
		f.writeLimits = f.writeLimits[1:]
	}
	f.out.Write(p[:n])
	f.writes++
	return n, nil
}

func (f *fakeSocket) PendingError() error { return f.pendingErr }

func (f *fakeSocket) Close() error {
	f.closeCount++
	if f.closeCount > 1 {
		return ErrSocketClosed
	}
	return nil
}

// fakeMux reports, for every fd in the set, the requested interests
// that are also in ready[fd] (or all when the fd has no entry).
type fakeMux struct {
	ready map[int]poller.Interest
	all   poller.Interest
	err   error
	waits int
}

func (m *fakeMux) Wait(set *poller.Set, _ time.Duration) (int, error) {
	m.waits++
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	set.Each(func(fd int, want poller.Interest) {
		got, ok := m.ready[fd]
		if !ok {
			got = m.all
		}
		got &= want
		if got != 0 {
			set.Mark(fd, got)
			n++
		}
	})
	return n, nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// recordingPages counts provider calls and returns page for every path.
type recordingPages struct {
	page  []byte
	calls []string
	seqs  []uint64
}

func (p *recordingPages) BuildPage(path string, seq uint64) []byte {
	p.calls = append(p.calls, path)
	p.seqs = append(p.seqs, seq)
	return p.page
}

func testOptions() *connOptions {
	cfg := DefaultConfig()
	return &connOptions{
		readBufferSize: cfg.ReadBufferSize,
		maxRequestLine: cfg.MaxRequestLineBytes,
		framing:        response.DefaultFraming(),
		pool:           NewBufferPool(),
		logger:         &NullLogger{},
		metrics:        NewMetrics(),
	}
}

const okResponse = "HTTP/1.0 200 OK\r\n" +
	"Server: Repro Proxy \r\n" +
	"Content-Length: 15\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<html>ok</html>"
