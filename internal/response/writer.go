package response

import (
	"fmt"
	"io"

	"github.com/Brownie44l1/statusd/internal/headers"
)

const (
	protoVersion = "HTTP/1.0"
	crlf         = "\r\n"
)

// writerState tracks what's been written so far
type writerState int

const (
	stateStart writerState = iota
	stateStatusWritten
	stateHeadersWritten
	stateBodyWritten
)

// Writer frames an HTTP/1.0 response onto an io.Writer. Parts must be
// written in order: status line, headers, body.
type Writer struct {
	w          io.Writer
	state      writerState
	statusCode StatusCode
	written    int64
}

// NewWriter creates a new response writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:     w,
		state: stateStart,
	}
}

// WriteStatusLine writes the status line
func (w *Writer) WriteStatusLine(code StatusCode) error {
	if w.state != stateStart {
		return fmt.Errorf("status line already written")
	}

	n, err := fmt.Fprintf(w.w, "%s %d %s%s", protoVersion, code, StatusText(code), crlf)
	w.written += int64(n)
	if err != nil {
		return err
	}

	w.statusCode = code
	w.state = stateStatusWritten
	return nil
}

// WriteHeaders writes the header block followed by the blank line
func (w *Writer) WriteHeaders(h *headers.Headers) error {
	if w.state != stateStatusWritten {
		return fmt.Errorf("must write status line before headers")
	}

	n, err := h.WriteTo(w.w)
	w.written += n
	if err != nil {
		return err
	}

	m, err := io.WriteString(w.w, crlf)
	w.written += int64(m)
	if err != nil {
		return err
	}

	w.state = stateHeadersWritten
	return nil
}

// WriteBody writes the complete response body
func (w *Writer) WriteBody(data []byte) error {
	if w.state != stateHeadersWritten {
		return fmt.Errorf("must write headers before body")
	}

	n, err := w.w.Write(data)
	w.written += int64(n)
	if err != nil {
		return err
	}

	w.state = stateBodyWritten
	return nil
}

func (w *Writer) StatusCode() StatusCode {
	return w.statusCode
}

// Written is the number of bytes handed to the underlying writer.
func (w *Writer) Written() int64 {
	return w.written
}
