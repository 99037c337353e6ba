// Package diff computes which announcements have not been seen before.
package diff

import "github.com/shanehull/annwatch/internal/types"

// Diff returns the elements of current whose identity is absent from previous,
// in the order they appear in current.
//
// With link identity, a previous announcement stored without a link (snapshots
// written before links were kept) still covers a current one with the same title.
func Diff(current, previous []types.Announcement, key types.IdentityKey) []types.Announcement {
	seen := make(map[string]struct{}, len(previous))
	linkless := make(map[string]struct{})
	for _, p := range previous {
		seen[key.Key(p)] = struct{}{}
		if key == types.IdentityLink && p.Link == "" {
			linkless[p.Title] = struct{}{}
		}
	}

	var fresh []types.Announcement
	for _, c := range current {
		if _, ok := seen[key.Key(c)]; ok {
			continue
		}
		if _, ok := linkless[c.Title]; ok {
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}

// Dedupe drops later announcements that share an identity with an earlier one.
func Dedupe(items []types.Announcement, key types.IdentityKey) []types.Announcement {
	seen := make(map[string]struct{}, len(items))
	out := make([]types.Announcement, 0, len(items))
	for _, it := range items {
		k := key.Key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
