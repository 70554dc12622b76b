package htmltext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Eclipse Guide | Example News</title>
	<link rel="canonical" href="/guides/eclipse">
	<script>var tracking = true;</script>
</head>
<body>
	<nav>Home | News | Science</nav>
	<article>
		<h1>Eclipse Guide</h1>
		<p>The total solar eclipse of August 2026 will sweep across the Atlantic,
		reaching totality over Iceland and northern Spain in the late afternoon.</p>
		<p>Observers along the centerline can expect roughly two minutes of
		darkness, with the corona visible to the naked eye.</p>
	</article>
	<footer>Copyright Example News</footer>
</body>
</html>`

func TestExtract_Article(t *testing.T) {
	c, err := Extract([]byte(articleHTML), "https://news.example.com/guides/eclipse?ref=home")

	require.NoError(t, err)
	assert.Contains(t, c.Title, "Eclipse Guide")
	assert.Equal(t, "https://news.example.com/guides/eclipse", c.CanonicalURL)
	assert.Contains(t, c.Text, "totality over Iceland")
	assert.NotContains(t, c.Text, "var tracking")
	assert.NotContains(t, c.Text, "Copyright Example News")
}

func TestExtract_FallsBackToBodyText(t *testing.T) {
	html := `<html><head><title>Short</title></head><body><p>tiny page</p></body></html>`

	c, err := Extract([]byte(html), "https://example.com/short")

	require.NoError(t, err)
	assert.Contains(t, c.Text, "tiny page")
}

func TestExtract_NoCanonical(t *testing.T) {
	html := `<html><head><title>t</title></head><body>x</body></html>`

	c, err := Extract([]byte(html), "https://example.com/x")

	require.NoError(t, err)
	assert.Empty(t, c.CanonicalURL)
}

func TestExtract_CapsTextLength(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><article>")
	for i := 0; i < 6000; i++ {
		b.WriteString("<p>some repeated filler sentence about nothing much at all</p>")
	}
	b.WriteString("</article></body></html>")

	c, err := Extract([]byte(b.String()), "https://example.com/long")

	require.NoError(t, err)
	assert.LessOrEqual(t, len(c.Text), MaxTextLen)
}

func TestExtract_NormalizesWhitespace(t *testing.T) {
	html := "<html><body><p>first\n\n\t  second</p></body></html>"

	c, err := Extract([]byte(html), "https://example.com/w")

	require.NoError(t, err)
	assert.Contains(t, c.Text, "first second")
	assert.NotContains(t, c.Text, "\n")
	assert.NotContains(t, c.Text, "  ")
}
