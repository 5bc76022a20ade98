package pages

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/Brownie44l1/statusd/internal/server"
)

// Source is what the status pages report on. *server.Server satisfies
// it; both methods are called from the loop.
type Source interface {
	Metrics() *server.Metrics
	Connections() []server.ConnInfo
}

// Status renders the built-in status pages.
type Status struct {
	Name    string
	Source  Source
	Started time.Time
	Now     func() time.Time
}

// Register installs the status pages on r.
func (s *Status) Register(r *Router) {
	r.Handle("/index.html", s.index)
	r.Handle("/connections", s.connections)
	r.Handle("/conn/:seq", s.conn)
}

func (s *Status) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Status) index(_ map[string]string, seq uint64) []byte {
	snap := s.Source.Metrics().Snapshot()

	var b strings.Builder
	s.header(&b, "Status")
	fmt.Fprintf(&b, "<p>You are connection %d. Up %s.</p>\n", seq, s.now().Sub(s.Started).Truncate(time.Second))
	b.WriteString("<table>\n")
	row(&b, "Connections accepted", snap.ConnectionsAccepted)
	row(&b, "Connections rejected", snap.ConnectionsRejected)
	row(&b, "Active connections", snap.ActiveConnections)
	row(&b, "Connections closed", snap.ConnectionsClosed)
	row(&b, "Pages served", snap.PagesServed)
	row(&b, "Redirects", snap.Redirects)
	row(&b, "Bytes read", snap.BytesRead)
	row(&b, "Bytes written", snap.BytesWritten)
	row(&b, "I/O errors", snap.IOErrors)
	row(&b, "Idle reaped", snap.IdleReaped)
	row(&b, "Oversize requests", snap.OversizeDrops)
	b.WriteString("</table>\n")
	b.WriteString(`<p><a href="/connections">Live connections</a></p>` + "\n")
	footer(&b)
	return []byte(b.String())
}

func (s *Status) connections(_ map[string]string, _ uint64) []byte {
	now := s.now()

	var b strings.Builder
	s.header(&b, "Connections")
	b.WriteString("<table>\n<tr><th>Seq</th><th>Fd</th><th>State</th><th>Pending</th><th>Idle</th></tr>\n")
	for _, c := range s.Source.Connections() {
		fmt.Fprintf(&b, "<tr><td><a href=\"/conn/%d\">%d</a></td><td>%d</td><td>%s</td><td>%d</td><td>%s</td></tr>\n",
			c.Seq, c.Seq, c.Fd, c.State, c.Pending, now.Sub(c.LastActive).Truncate(time.Millisecond))
	}
	b.WriteString("</table>\n")
	footer(&b)
	return []byte(b.String())
}

// conn shows one connection. Unknown or malformed sequence numbers
// yield no page.
func (s *Status) conn(params map[string]string, _ uint64) []byte {
	want, err := strconv.ParseUint(params["seq"], 10, 64)
	if err != nil {
		return nil
	}
	for _, c := range s.Source.Connections() {
		if c.Seq != want {
			continue
		}
		var b strings.Builder
		s.header(&b, fmt.Sprintf("Connection %d", c.Seq))
		b.WriteString("<dl>\n")
		fmt.Fprintf(&b, "<dt>Descriptor</dt><dd>%d</dd>\n", c.Fd)
		fmt.Fprintf(&b, "<dt>State</dt><dd>%s</dd>\n", c.State)
		fmt.Fprintf(&b, "<dt>Pending bytes</dt><dd>%d</dd>\n", c.Pending)
		fmt.Fprintf(&b, "<dt>Last active</dt><dd>%s</dd>\n", c.LastActive.UTC().Format(time.RFC3339Nano))
		b.WriteString("</dl>\n")
		footer(&b)
		return []byte(b.String())
	}
	return nil
}

func (s *Status) header(b *strings.Builder, title string) {
	name := html.EscapeString(s.Name)
	fmt.Fprintf(b, "<!DOCTYPE html>\n<html><head><title>%s - %s</title></head>\n<body>\n<h1>%s</h1>\n",
		name, html.EscapeString(title), html.EscapeString(title))
}

func row(b *strings.Builder, label string, v int64) {
	fmt.Fprintf(b, "<tr><td>%s</td><td>%d</td></tr>\n", label, v)
}

func footer(b *strings.Builder) {
	b.WriteString("</body></html>\n")
}
