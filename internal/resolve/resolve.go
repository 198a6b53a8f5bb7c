// Package resolve locates image references inside raw HTML snippets.
package resolve

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ImageURL returns the absolute URL of the first <img> in htmlSnippet.
// Relative sources are resolved against baseURL. The boolean is false when
// the snippet has no image, the image has no src, or the src cannot be resolved.
func ImageURL(htmlSnippet, baseURL string) (string, bool) {
	src, ok := FirstImageSource(htmlSnippet)
	if !ok {
		return "", false
	}
	return Absolute(src, baseURL)
}

// FirstImageSource returns the raw src attribute of the first <img> in the snippet.
func FirstImageSource(htmlSnippet string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlSnippet))
	if err != nil {
		return "", false
	}

	src, exists := doc.Find("img").First().Attr("src")
	src = strings.TrimSpace(src)
	if !exists || src == "" {
		return "", false
	}
	return src, true
}

// Absolute resolves ref against base using standard URL reference resolution.
// A ref that already carries a scheme is returned as is. A '%' that does not
// start a valid escape is encoded as "%25" instead of rejecting the ref.
func Absolute(ref, base string) (string, bool) {
	refURL, err := url.Parse(ref)
	if err != nil {
		refURL, err = url.Parse(escapeStrayPercents(ref))
		if err != nil {
			return "", false
		}
	}
	if refURL.Scheme != "" {
		return ref, true
	}

	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Scheme == "" {
		return "", false
	}
	return baseURL.ResolveReference(refURL).String(), true
}

// escapeStrayPercents encodes every '%' not followed by two hex digits.
func escapeStrayPercents(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			sb.WriteString("%25")
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
