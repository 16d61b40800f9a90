// Package sanitize wraps the bluemonday policies applied to user input.
package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

var (
	// strictPolicy removes all HTML tags and attributes. Used for fields
	// that must stay plain text (titles, locations).
	strictPolicy = bluemonday.StrictPolicy()

	// ugcPolicy allows safe user-generated formatting in descriptions
	// while stripping scripts, iframes and event handlers.
	ugcPolicy = bluemonday.UGCPolicy()
)

// Text strips all HTML tags and returns plain text.
func Text(input string) string {
	return strictPolicy.Sanitize(input)
}

// HTML sanitizes HTML content, keeping safe formatting tags.
func HTML(input string) string {
	return ugcPolicy.Sanitize(input)
}
