package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
)

// HashContent creates a SHA256 hash of extracted page text. Pages sharing a
// hash are treated as near-duplicates.
func HashContent(text string) string {
	h := sha256.New()
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// DomainOf extracts the hostname from a raw URL, or "unknown" if it cannot
// be parsed.
func DomainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return parsed.Hostname()
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}
