package domain

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var messagePolicy = newMessagePolicy()

func newMessagePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// inline screenshots pasted into the editor arrive as data URIs
	p.AllowDataURIImages()
	p.AllowAttrs("width", "height").Matching(regexp.MustCompile(`^[0-9]+(px|%)?$`)).OnElements("img")
	return p
}

// SanitizeMessage strips unsafe markup from rich-text comment bodies.
func SanitizeMessage(message string) string {
	return strings.TrimSpace(messagePolicy.Sanitize(message))
}
