package parser

import (
	"regexp"
	"strings"
)

var (
	ipv4Pattern   = regexp.MustCompile(`(\d{1,3}(?:\.\d{1,3}){3})`)
	clientIPAttrs = regexp.MustCompile(`id=["']client-ipv4["'][^>]*data-ip=["']([^"']+)["']`)
)

// ExtractIP returns the first dotted quad in text. Octet ranges are not checked.
func ExtractIP(text string) (string, bool) {
	m := ipv4Pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractClientIP reads the data-ip attribute of the client-ipv4 element and
// falls back to ExtractIP.
func ExtractClientIP(text string) (string, bool) {
	if m := clientIPAttrs.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return ExtractIP(text)
}
