package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// sanitizeText strips all markup and returns plain text. The strict policy escapes
// entities, which is undone so apostrophes and ampersands survive the round trip.
func sanitizeText(policy *bluemonday.Policy, input string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(input)))
}
