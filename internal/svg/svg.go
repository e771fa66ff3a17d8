// Package svg extracts SVG documents from model completion text.
package svg

import (
	"errors"
	"strings"
)

const (
	openTag  = "<svg"
	closeTag = "</svg>"
)

var (
	// ErrMissingOpenTag means the completion contains no <svg opening tag.
	ErrMissingOpenTag = errors.New("response contains no <svg opening tag")

	// ErrMissingCloseTag means an opening tag was found but never closed.
	ErrMissingCloseTag = errors.New("response contains no </svg> closing tag")
)

// Extract returns the substring from the first <svg opening tag through the
// first subsequent </svg> closing tag, inclusive. The boundaries are
// re-derived from the text itself, so any prose or code fencing the model
// wrapped around the document is discarded.
func Extract(text string) (string, error) {
	start := strings.Index(text, openTag)
	if start == -1 {
		return "", ErrMissingOpenTag
	}
	end := strings.Index(text[start:], closeTag)
	if end == -1 {
		return "", ErrMissingCloseTag
	}
	return text[start : start+end+len(closeTag)], nil
}
