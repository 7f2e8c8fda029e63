package utils

import "github.com/microcosm-cc/bluemonday"

var (
	sanitizer     = bluemonday.UGCPolicy()
	textSanitizer = bluemonday.StrictPolicy()
)

// Sanitize strips scripts and unsafe attributes from user supplied HTML or Markdown.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// SanitizeText removes all markup, for short plain-text fields like titles and tags.
func SanitizeText(input string) string {
	return textSanitizer.Sanitize(input)
}
