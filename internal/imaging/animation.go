// Package imaging classifies and normalizes images before they are captioned.
package imaging

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/jonathan/wcag-check/internal/fetch"
)

// gceMarker is the GIF graphic control extension introducer, label and block size.
// Every frame of an animated GIF is preceded by one.
var gceMarker = []byte{0x21, 0xF9, 0x04}

// MediaTypeGIF is the only animatable format that is inspected.
const MediaTypeGIF = "image/gif"

// IsGIF reports whether the declared media type or the source URL marks the image as a GIF.
func IsGIF(declaredMediaType, sourceURL string) bool {
	if fetch.MediaType(declaredMediaType) == MediaTypeGIF {
		return true
	}
	path := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		path = u.Path
	}
	return strings.HasSuffix(strings.ToLower(path), ".gif")
}

// FrameMarkers counts non-overlapping graphic control extension markers in data.
func FrameMarkers(data []byte) int {
	return bytes.Count(data, gceMarker)
}

// IsAnimated reports whether data is a multi-frame GIF that must not be captioned.
// This is a byte-level heuristic, not a container parse: two or more markers
// classify the image as animated.
func IsAnimated(data []byte, declaredMediaType, sourceURL string) bool {
	if !IsGIF(declaredMediaType, sourceURL) {
		return false
	}
	return FrameMarkers(data) >= 2
}
