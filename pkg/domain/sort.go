package domain

import (
	"cmp"
	"slices"
	"strings"
)

// Iterable is a set of host names that can be walked
type Iterable interface {
	Len() int
	Range(fn func(item string) bool)
}

type keyed struct {
	owner string
	item  string
}

// Compare orders a and b by owning domain (ordinal), then by length.
func Compare(a, b string) int {
	if c := strings.Compare(OwningDomain(a), OwningDomain(b)); c != 0 {
		return c
	}
	return cmp.Compare(len(a), len(b))
}

// SortDomains returns a new slice holding in ordered by Compare. Ties keep
// their input order.
func SortDomains(in []string) []string {
	entries := make([]keyed, len(in))
	for i, item := range in {
		entries[i] = keyed{owner: OwningDomain(item), item: item}
	}
	return sortKeyed(entries)
}

// SortSet is SortDomains for a set
func SortSet(set Iterable) []string {
	entries := make([]keyed, 0, set.Len())
	set.Range(func(item string) bool {
		entries = append(entries, keyed{owner: OwningDomain(item), item: item})
		return true
	})
	return sortKeyed(entries)
}

func sortKeyed(entries []keyed) []string {
	slices.SortStableFunc(entries, func(a, b keyed) int {
		if c := strings.Compare(a.owner, b.owner); c != 0 {
			return c
		}
		return cmp.Compare(len(a.item), len(b.item))
	})

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.item
	}
	return out
}
