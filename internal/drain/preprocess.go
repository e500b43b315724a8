package drain

import (
	"regexp"
	"strings"
)

// Wildcard is the reserved template token matching any value at its position.
const Wildcard = "<*>"

// preprocess masks every match of the configured patterns with the wildcard
// token, in order, then splits the result into whitespace-separated tokens.
func preprocess(content string, patterns []*regexp.Regexp) []string {
	for _, re := range patterns {
		content = re.ReplaceAllString(content, Wildcard)
	}
	return strings.Fields(content)
}
