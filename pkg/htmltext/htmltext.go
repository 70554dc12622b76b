package htmltext

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// MaxTextLen bounds the amount of extracted text kept per page.
const MaxTextLen = 50_000

// Content is the text-level view of a fetched HTML document.
type Content struct {
	Title        string
	CanonicalURL string
	Text         string
}

// Extract pulls the title, canonical URL and readable text out of an HTML
// document. The main article body is preferred (via readability); when no
// article can be isolated it falls back to stripped body text.
func Extract(html []byte, pageURL string) (Content, error) {
	var c Content

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return c, err
	}

	c.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		c.CanonicalURL = resolveCanonical(pageURL, href)
	}

	if parsed, err := url.Parse(pageURL); err == nil {
		if article, err := readability.FromReader(bytes.NewReader(html), parsed); err == nil {
			if article.Title != "" {
				c.Title = article.Title
			}
			c.Text = normalize(article.TextContent)
		}
	}

	if c.Text == "" {
		c.Text = bodyText(doc)
	}

	if len(c.Text) > MaxTextLen {
		c.Text = c.Text[:MaxTextLen]
	}
	return c, nil
}

func bodyText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, noscript, iframe").Remove()
	return normalize(doc.Find("body").Text())
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(text)), " ")
}

func resolveCanonical(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	rel, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(rel).String()
}
