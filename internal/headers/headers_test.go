package headers

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersOrder(t *testing.T) {
	h := NewHeaders()
	h.Set("Server", "Repro Proxy ")
	h.Set("Content-Length", "15")
	h.Set("Content-Type", "text/html")

	var buf bytes.Buffer
	n, err := h.WriteTo(&buf)
	require.NoError(t, err)

	want := "Server: Repro Proxy \r\nContent-Length: 15\r\nContent-Type: text/html\r\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, int64(len(want)), n)
}

func TestHeadersCaseInsensitiveGet(t *testing.T) {
	h := NewHeaders()
	h.Set("Content-Type", "application/json")

	val, ok := h.Get("content-type")
	assert.True(t, ok)
	assert.Equal(t, "application/json", val)

	_, ok = h.Get("content-length")
	assert.False(t, ok)
}

func TestHeadersSetReplacesInPlace(t *testing.T) {
	h := NewHeaders()
	h.Set("A", "1")
	h.Set("B", "2")
	h.Add("a", "3")
	h.Set("a", "4")

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []string{"4"}, h.GetAll("A"))

	var buf bytes.Buffer
	_, err := h.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "A: 4\r\nB: 2\r\n", buf.String())
}

func TestHeadersAddAndDel(t *testing.T) {
	h := NewHeaders()
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")
	h.Add("Location", "/x")

	assert.Equal(t, []string{"a=1", "b=2"}, h.GetAll("set-cookie"))

	h.Del("SET-COOKIE")
	assert.Equal(t, 1, h.Len())
	assert.Nil(t, h.GetAll("set-cookie"))

	val, ok := h.Get("location")
	assert.True(t, ok)
	assert.Equal(t, "/x", val)
}

type failingWriter struct{ after int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("boom")
	}
	f.after--
	return len(p), nil
}

func TestHeadersWriteError(t *testing.T) {
	h := NewHeaders()
	h.Set("A", "1")
	h.Set("B", "2")

	n, err := h.WriteTo(&failingWriter{after: 1})

	require.Error(t, err)
	assert.Equal(t, int64(len("A: 1\r\n")), n)
}
