package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashContent_Deterministic(t *testing.T) {
	a := HashContent("the same text")
	b := HashContent("the same text")
	c := HashContent("different text")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "news.example.com", DomainOf("https://news.example.com/a/b?q=1"))
	assert.Equal(t, "example.com", DomainOf("http://example.com:8080/x"))
	assert.Equal(t, "unknown", DomainOf("not a url"))
	assert.Equal(t, "unknown", DomainOf(""))
}

func TestToAbsoluteURL(t *testing.T) {
	base, err := url.Parse("https://example.com/articles/one")
	require.NoError(t, err)

	abs, err := ToAbsoluteURL(base, "/two")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/two", abs)

	abs, err = ToAbsoluteURL(base, "https://other.example.org/three")
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.org/three", abs)
}
