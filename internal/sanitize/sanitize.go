// Package sanitize cleans the rich-text HTML stored as feature content.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup outside the feature-content allowlist.
type Sanitizer struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

var (
	classPattern = regexp.MustCompile(`^[\w\- ]+$`)
	lineBreaks   = regexp.MustCompile(`(?i)<br\s*/?>|</(p|li|h[1-3]|div)>`)
)

// New builds the feature-content policy: basic formatting, lists, headings,
// links, images, video and generic containers.
func New() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "u", "s", "ul", "ol", "li",
		"h1", "h2", "h3", "div", "span")
	p.AllowStandardURLs()
	p.AllowRelativeURLs(true)
	p.AllowAttrs("href", "target").OnElements("a")
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("src").OnElements("video")
	p.AllowAttrs("class").Matching(classPattern).Globally()
	p.RequireNoFollowOnLinks(false)
	p.AddTargetBlankToFullyQualifiedLinks(false)
	return &Sanitizer{policy: p, strict: bluemonday.StrictPolicy()}
}

// HTML returns s with disallowed elements and attributes removed.
func (s *Sanitizer) HTML(in string) string {
	return s.policy.Sanitize(in)
}

// Content sanitizes optional feature content. Nil, empty and
// whitespace-only results come back as nil.
func (s *Sanitizer) Content(in *string) *string {
	if in == nil {
		return nil
	}
	out := strings.TrimSpace(s.policy.Sanitize(*in))
	if out == "" {
		return nil
	}
	return &out
}

// PlainText renders feature content for terminals: every tag is removed,
// block ends become line breaks and entities are decoded.
func (s *Sanitizer) PlainText(in string) string {
	text := html.UnescapeString(s.strict.Sanitize(lineBreaks.ReplaceAllString(in, "\n")))
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
