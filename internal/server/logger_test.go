package server

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger()
	l.SetOutput(&buf)

	l.Info("connection closed by remote", Field{"conn", uint64(7)}, Field{"fd", 12})

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg="connection closed by remote"`)
	assert.Contains(t, out, "conn=7")
	assert.Contains(t, out, "fd=12")
}

func TestDefaultLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger()
	l.SetOutput(&buf)

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, l.SetLevel("debug"))
	l.Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, l.SetLevel("loud"))
}

func TestDefaultLoggerTruncatesLongValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger()
	l.SetOutput(&buf)

	l.Warn("long path", Field{"path", "/" + strings.Repeat("a", 300)})

	assert.Contains(t, buf.String(), "...[truncated]")
	assert.NotContains(t, buf.String(), strings.Repeat("a", 150))
}
