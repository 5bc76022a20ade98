package request

import (
	"errors"
	"fmt"
)

type ParserState string

const (
	StateInit  ParserState = "Init"
	StateDone  ParserState = "Done"
	StateError ParserState = "Error"
)

var ErrRequestLineTooLarge = errors.New("request line too large")

// Request accumulates inbound bytes until a request line yields a path.
// Once done it stops buffering: later bytes are counted and dropped.
type Request struct {
	State ParserState
	Path  string

	buf       []byte
	maxBytes  int
	discarded int
}

// New returns a Request that gives up once more than maxBytes have
// been buffered without finding a path.
func New(maxBytes int) *Request {
	return &Request{
		State:    StateInit,
		maxBytes: maxBytes,
	}
}

// Feed appends p and attempts a parse. It reports whether the path
// is known. Feeding a finished request never parses again.
func (r *Request) Feed(p []byte) (bool, error) {
	switch r.State {
	case StateError:
		return false, errors.New("request in error state")
	case StateDone:
		r.discarded += len(p)
		return true, nil
	}

	r.buf = append(r.buf, p...)

	path, ok := ExtractPath(r.buf)
	if !ok {
		if r.maxBytes > 0 && len(r.buf) > r.maxBytes {
			r.State = StateError
			return false, fmt.Errorf("%w: %d bytes buffered, limit %d", ErrRequestLineTooLarge, len(r.buf), r.maxBytes)
		}
		return false, nil
	}

	r.Path = string(path)
	r.State = StateDone
	r.buf = nil
	return true, nil
}

// Done reports whether a path has been extracted.
func (r *Request) Done() bool {
	return r.State == StateDone
}

// Buffered is the number of bytes held while waiting for a full line.
func (r *Request) Buffered() int {
	return len(r.buf)
}

// Discarded is the number of bytes dropped after the path was found.
func (r *Request) Discarded() int {
	return r.discarded
}
