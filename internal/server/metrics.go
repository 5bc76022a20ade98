package server

import (
	"sync/atomic"

	"github.com/Brownie44l1/statusd/internal/response"
)

// Metrics holds connection and response counters. The loop is the only
// writer; atomics let status pages and other goroutines read safely.
type Metrics struct {
	ConnectionsAccepted atomic.Int64
	ConnectionsRejected atomic.Int64
	ActiveConnections   atomic.Int64
	ConnectionsClosed   atomic.Int64

	PagesServed atomic.Int64
	Redirects   atomic.Int64

	BytesRead    atomic.Int64
	BytesWritten atomic.Int64

	IOErrors      atomic.Int64
	IdleReaped    atomic.Int64
	OversizeDrops atomic.Int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) connOpened() {
	m.ConnectionsAccepted.Add(1)
	m.ActiveConnections.Add(1)
}

func (m *Metrics) connClosed() {
	m.ActiveConnections.Add(-1)
	m.ConnectionsClosed.Add(1)
}

// recordResponse counts a framed response by its status.
func (m *Metrics) recordResponse(code response.StatusCode) {
	if code.IsRedirect() {
		m.Redirects.Add(1)
		return
	}
	m.PagesServed.Add(1)
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	ConnectionsAccepted int64
	ConnectionsRejected int64
	ActiveConnections   int64
	ConnectionsClosed   int64
	PagesServed         int64
	Redirects           int64
	BytesRead           int64
	BytesWritten        int64
	IOErrors            int64
	IdleReaped          int64
	OversizeDrops       int64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ConnectionsAccepted: m.ConnectionsAccepted.Load(),
		ConnectionsRejected: m.ConnectionsRejected.Load(),
		ActiveConnections:   m.ActiveConnections.Load(),
		ConnectionsClosed:   m.ConnectionsClosed.Load(),
		PagesServed:         m.PagesServed.Load(),
		Redirects:           m.Redirects.Load(),
		BytesRead:           m.BytesRead.Load(),
		BytesWritten:        m.BytesWritten.Load(),
		IOErrors:            m.IOErrors.Load(),
		IdleReaped:          m.IdleReaped.Load(),
		OversizeDrops:       m.OversizeDrops.Load(),
	}
}
