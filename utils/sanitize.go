package utils

import "github.com/microcosm-cc/bluemonday"

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// PlainText strips every tag, for titles and excerpts.
func PlainText(input string) string {
	return stripper.Sanitize(input)
}
