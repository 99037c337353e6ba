/*
Package extract turns a listing page into announcements by trying a chain of
selector rules until one of them matches.
*/
package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shanehull/annwatch/internal/diff"
	"github.com/shanehull/annwatch/internal/errs"
	"github.com/shanehull/annwatch/internal/logger"
	"github.com/shanehull/annwatch/internal/types"
)

type Extractor struct {
	rules []types.SelectorRule
	base  *url.URL
	key   types.IdentityKey
	log   *logger.Logger
}

// New creates an extractor. baseURL resolves relative hrefs; it may be empty, in
// which case links are kept as found.
func New(rules []types.SelectorRule, baseURL string, key types.IdentityKey) *Extractor {
	var base *url.URL
	if baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil {
			base = u
		}
	}
	return &Extractor{
		rules: rules,
		base:  base,
		key:   key,
		log:   logger.For("extract"),
	}
}

// Extract returns the announcements found by the first rule that yields any.
// A page on which no rule matches is a parsing error.
func (e *Extractor) Extract(page []byte) ([]types.Announcement, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, errs.Parsing("extract", "failed to parse HTML", err)
	}

	for _, rule := range e.rules {
		e.log.Debug().Str("rule", rule.String()).Msg("Trying selector")

		anns := e.apply(doc, rule)
		if len(anns) == 0 {
			continue
		}

		anns = diff.Dedupe(anns, e.key)
		e.log.Info().
			Str("rule", rule.String()).
			Int("count", len(anns)).
			Msg("Announcements extracted")
		return anns, nil
	}

	return nil, errs.Parsing("extract", "no selector matched any announcement; the page layout may have changed", nil)
}

func (e *Extractor) apply(doc *goquery.Document, rule types.SelectorRule) []types.Announcement {
	var anns []types.Announcement

	doc.Find(rule.Item).Each(func(_ int, item *goquery.Selection) {
		titleSel := item
		if rule.Title != "" {
			titleSel = item.Find(rule.Title).First()
			if titleSel.Length() == 0 {
				return
			}
		}

		title := normalizeSpace(titleSel.Text())
		if title == "" {
			return
		}

		anns = append(anns, types.Announcement{
			Title: title,
			Link:  e.resolve(findHref(item, rule.Link)),
		})
	})

	return anns
}

// findHref looks for the first href under item matching sel; an empty sel means
// the item itself. The item's own href is the fallback either way.
func findHref(item *goquery.Selection, sel string) string {
	if sel != "" {
		var href string
		item.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if h, ok := s.Attr("href"); ok && strings.TrimSpace(h) != "" {
				href = h
				return false
			}
			return true
		})
		if href != "" {
			return strings.TrimSpace(href)
		}
	}
	if h, ok := item.Attr("href"); ok {
		return strings.TrimSpace(h)
	}
	return ""
}

func (e *Extractor) resolve(href string) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if e.base == nil || ref.IsAbs() {
		return ref.String()
	}
	return e.base.ResolveReference(ref).String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
