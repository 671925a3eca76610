// Package domain holds the host name arithmetic shared by the filters:
// owning-domain extraction, the subdomain predicate and the canonical ordering.
package domain

import "strings"

// IsSecondLevelSuffix reports whether label is one of the generic second-level
// labels treated as part of a public suffix, as in "co.jp" or "com.au".
func IsSecondLevelSuffix(label string) bool {
	switch label {
	case "co", "com", "org", "ne", "net", "edu", "or":
		return true
	}
	return false
}

// OwningDomain returns the heuristic registrable domain of s. The result is
// always a suffix of s, so no allocation takes place.
func OwningDomain(s string) string {
	// last[0] is the rightmost dot, last[1] the one before, last[2] the one before that.
	var last [3]int
	dots := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			last[2], last[1], last[0] = last[1], last[0], i
			dots++
		}
	}

	switch {
	case dots <= 1:
		return s
	case dots == 2:
		if IsSecondLevelSuffix(s[last[1]+1 : last[0]]) {
			return s
		}
		return s[last[1]+1:]
	}

	owner := s[last[1]+1:]
	if IsSecondLevelSuffix(s[last[1]+1 : last[0]]) {
		owner = s[last[2]+1:]
	}
	if len(owner) > 3 {
		return owner
	}
	return s[last[2]+1:]
}

// IsSubDomainOf reports whether candidate is a strict subdomain of domain
func IsSubDomainOf(candidate, domain string) bool {
	if len(domain) == 0 || len(candidate) <= len(domain) {
		return false
	}
	if !strings.HasSuffix(candidate, domain) {
		return false
	}
	return candidate[len(candidate)-len(domain)-1] == '.'
}
