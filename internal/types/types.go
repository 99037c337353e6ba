package types

import (
	"fmt"
	"strings"
)

type Announcement struct {
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}

type Match struct {
	Announcement
	KeywordsFound []string `json:"keywords_found,omitempty"`
}

// IdentityKey selects the field that decides whether an announcement was already seen.
type IdentityKey string

const (
	IdentityTitle IdentityKey = "title"
	IdentityLink  IdentityKey = "link"
)

// Key returns the identity of ann. Link identity falls back to the title for
// announcements that carry no link.
func (k IdentityKey) Key(ann Announcement) string {
	if k == IdentityLink && ann.Link != "" {
		return ann.Link
	}
	return ann.Title
}

func ParseIdentityKey(s string) (IdentityKey, error) {
	switch IdentityKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", IdentityTitle:
		return IdentityTitle, nil
	case IdentityLink:
		return IdentityLink, nil
	}
	return "", fmt.Errorf("unknown identity key %q (want title or link)", s)
}

func Titles(anns []Announcement) []string {
	titles := make([]string, 0, len(anns))
	for _, a := range anns {
		titles = append(titles, a.Title)
	}
	return titles
}

// SelectorRule describes one way of locating announcements on a listing page.
// Item matches one block per announcement. Title is searched inside the block;
// empty means the block's own text. Link is searched inside the block; empty means
// the block's own href.
type SelectorRule struct {
	Item  string `yaml:"item" validate:"required"`
	Title string `yaml:"title"`
	Link  string `yaml:"link"`
}

func (r SelectorRule) String() string {
	s := r.Item
	if r.Title != "" {
		s += " " + r.Title
	}
	return s
}
