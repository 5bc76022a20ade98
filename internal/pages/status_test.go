package pages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Brownie44l1/statusd/internal/server"
)

type fakeSource struct {
	metrics *server.Metrics
	conns   []server.ConnInfo
}

func (f *fakeSource) Metrics() *server.Metrics       { return f.metrics }
func (f *fakeSource) Connections() []server.ConnInfo { return f.conns }

func newStatus() (*Status, *fakeSource) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	src := &fakeSource{
		metrics: server.NewMetrics(),
		conns: []server.ConnInfo{
			{Seq: 3, Fd: 9, State: server.StateAwaitingRequest, LastActive: start},
			{Seq: 5, Fd: 11, State: server.StateResponding, Pending: 120, LastActive: start.Add(time.Second)},
		},
	}
	st := &Status{
		Name:    "Repro <Proxy>",
		Source:  src,
		Started: start,
		Now:     func() time.Time { return start.Add(90 * time.Second) },
	}
	return st, src
}

func TestStatusIndex(t *testing.T) {
	st, src := newStatus()
	src.metrics.PagesServed.Add(4)
	r := New()
	st.Register(r)

	page := string(r.BuildPage("/index.html", 6))

	assert.Contains(t, page, "<title>Repro &lt;Proxy&gt; - Status</title>")
	assert.Contains(t, page, "You are connection 6. Up 1m30s.")
	assert.Contains(t, page, "<tr><td>Pages served</td><td>4</td></tr>")
	assert.Contains(t, page, `<a href="/connections">`)
}

func TestStatusConnections(t *testing.T) {
	st, _ := newStatus()
	r := New()
	st.Register(r)

	page := string(r.BuildPage("/connections", 1))

	assert.Contains(t, page, `<tr><td><a href="/conn/3">3</a></td><td>9</td><td>awaiting-request</td><td>0</td><td>1m30s</td></tr>`)
	assert.Contains(t, page, `<a href="/conn/5">5</a>`)
}

func TestStatusConnDetail(t *testing.T) {
	st, _ := newStatus()
	r := New()
	st.Register(r)

	page := string(r.BuildPage("/conn/5", 1))

	assert.Contains(t, page, "<h1>Connection 5</h1>")
	assert.Contains(t, page, "<dt>Pending bytes</dt><dd>120</dd>")
	assert.Contains(t, page, "<dt>Last active</dt><dd>2024-01-02T03:04:06Z</dd>")
}

func TestStatusConnUnknownRedirects(t *testing.T) {
	st, _ := newStatus()
	r := New()
	st.Register(r)

	assert.Nil(t, r.BuildPage("/conn/4", 1))
	assert.Nil(t, r.BuildPage("/conn/abc", 1))
	assert.Nil(t, r.BuildPage("/conn/-1", 1))
}
