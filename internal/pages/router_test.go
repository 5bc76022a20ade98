package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func static(body string) PageFunc {
	return func(map[string]string, uint64) []byte { return []byte(body) }
}

func TestRouterStaticMatch(t *testing.T) {
	r := New()
	r.Handle("/index.html", static("home"))
	r.Handle("/connections", static("conns"))

	assert.Equal(t, []byte("home"), r.BuildPage("/index.html", 1))
	assert.Equal(t, []byte("conns"), r.BuildPage("/connections", 1))
	assert.Nil(t, r.BuildPage("/", 1))
	assert.Nil(t, r.BuildPage("/index.htm", 1))
	assert.Nil(t, r.BuildPage("", 1))
}

func TestRouterParams(t *testing.T) {
	r := New()
	var got map[string]string
	r.Handle("/conn/:seq", func(params map[string]string, _ uint64) []byte {
		got = params
		return []byte("ok")
	})

	route, params := r.Match("/conn/42")
	require.NotNil(t, route)
	assert.Equal(t, []string{"seq"}, route.Params)
	assert.Equal(t, map[string]string{"seq": "42"}, params)

	assert.Equal(t, []byte("ok"), r.BuildPage("/conn/7", 3))
	assert.Equal(t, map[string]string{"seq": "7"}, got)

	assert.Nil(t, r.BuildPage("/conn/", 3))
	assert.Nil(t, r.BuildPage("/conn/7/extra", 3))
}

func TestRouterStripsQuery(t *testing.T) {
	r := New()
	r.Handle("/index.html", static("home"))

	assert.Equal(t, []byte("home"), r.BuildPage("/index.html?refresh=1", 1))
}

func TestRouterFirstRouteWins(t *testing.T) {
	r := New()
	r.Handle("/conn/latest", static("latest"))
	r.Handle("/conn/:seq", static("by seq"))

	assert.Equal(t, []byte("latest"), r.BuildPage("/conn/latest", 1))
	assert.Equal(t, []byte("by seq"), r.BuildPage("/conn/9", 1))
	assert.Equal(t, []string{"/conn/latest", "/conn/:seq"}, r.Routes())
}

func TestRouterPassesSequence(t *testing.T) {
	r := New()
	var seen uint64
	r.Handle("/", func(_ map[string]string, seq uint64) []byte {
		seen = seq
		return nil
	})

	assert.Nil(t, r.BuildPage("/", 12))
	assert.Equal(t, uint64(12), seen)
}

func TestExtractParams(t *testing.T) {
	assert.Equal(t, []string{}, extractParams("/index.html"))
	assert.Equal(t, []string{"seq"}, extractParams("/conn/:seq"))
	assert.Equal(t, []string{"a", "b"}, extractParams("/:a/x/:b"))
}
