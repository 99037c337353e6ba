/*
Package filter selects announcements whose titles mention configured keywords.

Matching is a case-insensitive substring test. Case folding follows the configured
language so that, for Turkish, "ALINACAKTIR" folds to "alınacaktır" rather than
"alinacaktir".
*/
package filter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shanehull/annwatch/internal/types"
)

type Matcher struct {
	tag      language.Tag
	keywords []string
	folded   []string
}

// New builds a matcher. An unparseable lang falls back to language-neutral folding.
func New(keywords []string, lang string) *Matcher {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Und
	}

	m := &Matcher{tag: tag}
	caser := cases.Lower(tag)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		m.keywords = append(m.keywords, kw)
		m.folded = append(m.folded, caser.String(kw))
	}
	return m
}

func (m *Matcher) Keywords() []string {
	return m.keywords
}

// Found returns the keywords contained in title, in configured order.
func (m *Matcher) Found(title string) []string {
	lowerTitle := cases.Lower(m.tag).String(title)

	var found []string
	for i, kw := range m.folded {
		if strings.Contains(lowerTitle, kw) {
			found = append(found, m.keywords[i])
		}
	}
	return found
}

// Filter keeps the items whose title contains any keyword. With no keywords the
// input is returned unchanged.
func (m *Matcher) Filter(items []types.Announcement) []types.Announcement {
	if len(m.folded) == 0 {
		return items
	}

	var kept []types.Announcement
	for _, it := range items {
		if len(m.Found(it.Title)) > 0 {
			kept = append(kept, it)
		}
	}
	return kept
}

// Match is Filter with the hit keywords attached to each result.
func (m *Matcher) Match(items []types.Announcement) []types.Match {
	var matches []types.Match
	for _, it := range items {
		found := m.Found(it.Title)
		if len(m.folded) > 0 && len(found) == 0 {
			continue
		}
		matches = append(matches, types.Match{Announcement: it, KeywordsFound: found})
	}
	return matches
}

// ParseKeywords splits a comma-separated keyword list, trimming entries and
// dropping blanks.
func ParseKeywords(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
