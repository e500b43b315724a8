package drain

import (
	"fmt"
	"regexp"
	"strings"
)

// Record is one accepted log line, split into the fields declared by the log
// format pattern. LineId is 1-based and assigned in acceptance order.
type Record struct {
	LineID int
	Fields map[string]string
}

// Content returns the free-text payload field.
func (r Record) Content() string {
	return r.Fields["Content"]
}

var (
	fieldPattern = regexp.MustCompile(`<[^<>]+>`)
	fieldName    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	spaceRun     = regexp.MustCompile(` +`)
)

// formatMatcher extracts the declared fields from a raw log line.
type formatMatcher struct {
	headers []string
	re      *regexp.Regexp
}

// compileFormat turns a log format pattern such as
//
//	<Date> <Time> <Level> <Component>: <Content>
//
// into a matcher. Runs of spaces in the literal portions match any non-empty
// whitespace run in the input; each <Name> becomes a named capture.
func compileFormat(format string) (*formatMatcher, error) {
	format = strings.TrimSpace(format)
	if format == "" {
		return nil, fmt.Errorf("%w: empty log format", ErrInvalidConfig)
	}

	var headers []string
	var expr strings.Builder
	expr.WriteString("^")

	last := 0
	for _, loc := range fieldPattern.FindAllStringIndex(format, -1) {
		literal := regexp.QuoteMeta(format[last:loc[0]])
		expr.WriteString(spaceRun.ReplaceAllString(literal, `\s+`))

		name := format[loc[0]+1 : loc[1]-1]
		if !fieldName.MatchString(name) {
			return nil, fmt.Errorf("%w: invalid field name %q in log format", ErrInvalidConfig, name)
		}
		for _, h := range headers {
			if h == name {
				return nil, fmt.Errorf("%w: duplicate field %q in log format", ErrInvalidConfig, name)
			}
		}
		headers = append(headers, name)
		expr.WriteString(fmt.Sprintf("(?P<%s>.*?)", name))

		last = loc[1]
	}
	literal := regexp.QuoteMeta(format[last:])
	expr.WriteString(spaceRun.ReplaceAllString(literal, `\s+`))
	expr.WriteString("$")

	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: log format declares no fields", ErrInvalidConfig)
	}
	hasContent := false
	for _, h := range headers {
		if h == "Content" {
			hasContent = true
		}
	}
	if !hasContent {
		return nil, fmt.Errorf("%w: log format must declare a <Content> field", ErrInvalidConfig)
	}

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("compiling log format: %w", err)
	}
	return &formatMatcher{headers: headers, re: re}, nil
}

// match extracts the declared fields from line, reporting false when the line
// does not fit the format.
func (m *formatMatcher) match(line string) (map[string]string, bool) {
	groups := m.re.FindStringSubmatch(strings.TrimSpace(line))
	if groups == nil {
		return nil, false
	}
	fields := make(map[string]string, len(m.headers))
	for i, name := range m.re.SubexpNames() {
		if name != "" {
			fields[name] = groups[i]
		}
	}
	return fields, true
}
