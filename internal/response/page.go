package response

import (
	"io"
	"strconv"

	"github.com/Brownie44l1/statusd/internal/headers"
)

const (
	DefaultServerName       = "Repro Proxy"
	DefaultRedirectLocation = "http:/index.html"
	ContentTypeHTML         = "text/html"
)

// RedirectBody is sent with every redirect.
const RedirectBody = `<!DOCTYPE HTML PUBLIC "-//IETF//DTD HTML 2.0//EN">` +
	`<html><head>` +
	`<title>301 Moved Permanently</title>` +
	`</head><body>` +
	`<h1>Moved</h1>` +
	`</body></html>`

// Framing holds the fixed parts of every page response.
type Framing struct {
	ServerName       string
	RedirectLocation string
}

func DefaultFraming() Framing {
	return Framing{
		ServerName:       DefaultServerName,
		RedirectLocation: DefaultRedirectLocation,
	}
}

// WritePage frames page as a complete response. An empty page becomes a
// 301 to the redirect location with RedirectBody; anything else is a
// 200 carrying page verbatim.
func (f Framing) WritePage(out io.Writer, page []byte) (StatusCode, error) {
	w := NewWriter(out)
	h := headers.NewHeaders()

	code := StatusOK
	body := page
	if len(page) == 0 {
		code = StatusMovedPermanently
		body = []byte(RedirectBody)
		h.Set("Location", f.RedirectLocation)
	}

	h.Set("Server", f.ServerName+" ")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Content-Type", ContentTypeHTML)

	if err := w.WriteStatusLine(code); err != nil {
		return code, err
	}
	if err := w.WriteHeaders(h); err != nil {
		return code, err
	}
	return code, w.WriteBody(body)
}
