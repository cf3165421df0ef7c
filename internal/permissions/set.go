package permissions

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// idSet is a copy-on-write set of permission identifiers. Membership is
// case-insensitive; the spelling first added is what the set hands back.
type idSet map[string]string

func newIDSet(ids ...string) idSet {
	set := make(idSet, len(ids))
	for _, id := range ids {
		id = NormalizeID(id)
		if id == "" {
			continue
		}
		if _, ok := set[FoldID(id)]; !ok {
			set[FoldID(id)] = id
		}
	}
	return set
}

func (s idSet) has(id string) bool {
	_, ok := s[FoldID(id)]
	return ok
}

// with returns a copy of s that contains id. s itself is never modified.
func (s idSet) with(id string) idSet {
	if s.has(id) {
		return s
	}
	next := make(idSet, len(s)+1)
	for k, v := range s {
		next[k] = v
	}
	next[FoldID(id)] = NormalizeID(id)
	return next
}

// without returns a copy of s that does not contain id.
func (s idSet) without(id string) idSet {
	if !s.has(id) {
		return s
	}
	key := FoldID(id)
	next := make(idSet, len(s))
	for k, v := range s {
		if k != key {
			next[k] = v
		}
	}
	return next
}

func (s idSet) sorted() []string {
	ids := lo.Values(map[string]string(s))
	sort.Strings(ids)
	return ids
}

func (s idSet) equal(other idSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// NormalizeID trims a permission identifier. Its spelling is kept.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// FoldID is the comparison key of a permission identifier: trimmed and lower-cased.
func FoldID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// SameID reports whether a and b name the same permission.
func SameID(a, b string) bool {
	return FoldID(a) == FoldID(b)
}

// NormalizeIDs trims and de-duplicates ids case-insensitively, dropping blanks.
// Input order and the first spelling are kept.
func NormalizeIDs(ids []string) []string {
	trimmed := lo.FilterMap(ids, func(id string, _ int) (string, bool) {
		id = NormalizeID(id)
		return id, id != ""
	})
	return lo.UniqBy(trimmed, FoldID)
}
