// Package sanitize provides sanitization for user-generated chat content.
// Uses bluemonday to strip all HTML (script tags, event handlers,
// javascript: URLs) from message text and chat titles, which are stored
// and rendered as plain text.
package sanitize

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton bluemonday policy for sanitizing user input.
// Initialized once via sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared sanitization policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		// StrictPolicy strips every element and attribute. Chat messages and
		// titles are plain text; any markup in them is hostile or accidental.
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all HTML from user-provided text, returning the remaining
// plain text with entities decoded. This MUST be called on message text and
// chat titles before storing them.
func Text(input string) string {
	if input == "" {
		return ""
	}
	// bluemonday escapes entities in its output; decode them back since the
	// result is stored and served as plain text, not HTML.
	return html.UnescapeString(getPolicy().Sanitize(input))
}
