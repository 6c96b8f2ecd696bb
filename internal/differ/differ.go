// Package differ computes which feed entries are new relative to a stored snapshot.
package differ

import "github.com/samvad-hq/rss-opinion/internal/domain"

// Diff returns the entries of fresh whose link does not appear in stored,
// in fresh's order. Links are compared as opaque, case-sensitive strings. A
// link repeated within fresh is returned once, at its first position.
func Diff(fresh, stored []domain.Entry) []domain.Entry {
	if len(fresh) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(stored))
	for _, e := range stored {
		seen[e.Link] = struct{}{}
	}

	var out []domain.Entry
	for _, e := range fresh {
		if _, ok := seen[e.Link]; ok {
			continue
		}
		seen[e.Link] = struct{}{}
		out = append(out, e)
	}
	return out
}
