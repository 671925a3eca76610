package storage

import (
	"github.com/bits-and-blooms/bloom/v3"
)

// DefaultFalsePositiveRate is the bloom prefilter error rate used by NewByteMatcher
const DefaultFalsePositiveRate = 0.01

// ByteMatcher matches raw byte slices against a fixed table of strings.
// A Bloom filter rejects most misses before the exact lookup.
type ByteMatcher struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

// NewByteMatcher creates a matcher for entries
func NewByteMatcher(entries []string) *ByteMatcher {
	n := uint(len(entries))
	if n == 0 {
		n = 1
	}

	m := &ByteMatcher{
		filter: bloom.NewWithEstimates(n, DefaultFalsePositiveRate),
		exact:  make(map[string]struct{}, len(entries)),
	}
	for _, entry := range entries {
		m.filter.AddString(entry)
		m.exact[entry] = struct{}{}
	}
	return m
}

// Match reports whether b equals one of the entries byte for byte
func (m *ByteMatcher) Match(b []byte) bool {
	if m == nil || len(m.exact) == 0 {
		return false
	}
	if !m.filter.Test(b) {
		return false
	}
	_, ok := m.exact[string(b)]
	return ok
}

// Len returns the number of entries
func (m *ByteMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.exact)
}
