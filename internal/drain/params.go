package drain

import (
	"regexp"
	"strings"

	"github.com/hashicorp/golang-lru/simplelru"
)

const paramRegexCacheSize = 1024

var (
	placeholderPattern = regexp.MustCompile(`<.{1,5}>`)
	nonAlnumPattern    = regexp.MustCompile(`([^A-Za-z0-9])`)
	escapedSpaceRun    = regexp.MustCompile(`\\ +`)
)

// paramExtractor derives the ordered variable values of a log line from its
// event template. Compiled per-template regexes are kept in a bounded LRU
// cache since many rows share the same template.
type paramExtractor struct {
	cache *simplelru.LRU
}

func newParamExtractor() *paramExtractor {
	cache, _ := simplelru.NewLRU(paramRegexCacheSize, nil)
	return &paramExtractor{cache: cache}
}

// extract returns the values captured by the template's wildcard positions,
// in order. Templates without wildcards and contents that do not match the
// template yield an empty list.
func (e *paramExtractor) extract(template, content string) []string {
	re, ok := e.templateRegex(template)
	if !ok {
		return []string{}
	}
	groups := re.FindStringSubmatch(content)
	if groups == nil {
		return []string{}
	}
	return groups[1:]
}

// templateRegex builds (or fetches) the capture regex for a template.
// Placeholder tokens such as <*> or <NUM> are unified to the wildcard, every
// other character is escaped, literal space runs relax to \s+, and each
// wildcard becomes a non-greedy capture group. ok is false when the template
// has no wildcard positions.
func (e *paramExtractor) templateRegex(template string) (*regexp.Regexp, bool) {
	if cached, hit := e.cache.Get(template); hit {
		re, ok := cached.(*regexp.Regexp)
		return re, ok && re != nil
	}

	unified := placeholderPattern.ReplaceAllString(template, Wildcard)
	if !strings.Contains(unified, Wildcard) {
		e.cache.Add(template, (*regexp.Regexp)(nil))
		return nil, false
	}

	escaped := nonAlnumPattern.ReplaceAllString(unified, `\$1`)
	escaped = escapedSpaceRun.ReplaceAllString(escaped, `\s+`)
	expr := "^" + strings.ReplaceAll(escaped, `\<\*\>`, `(.*?)`) + "$"

	re, err := regexp.Compile(expr)
	if err != nil {
		e.cache.Add(template, (*regexp.Regexp)(nil))
		return nil, false
	}
	e.cache.Add(template, re)
	return re, true
}
