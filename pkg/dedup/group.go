package dedup

import (
	"github.com/WangYihang/Blocklist-Merger/pkg/domain"
	"github.com/WangYihang/Blocklist-Merger/pkg/domain/repository"
)

// FilterGrouped groups set by owning domain. Whenever a group of two or more
// members contains its owning domain, every other member is removed, since
// the owning domain covers them. It returns the number of removed entries.
func FilterGrouped(set repository.DomainSet) int {
	groups := make(map[string][]string)
	set.Range(func(item string) bool {
		owner := domain.OwningDomain(item)
		groups[owner] = append(groups[owner], item)
		return true
	})

	removed := 0
	for owner, members := range groups {
		if len(members) < 2 || !set.Contains(owner) {
			continue
		}
		for _, member := range members {
			if member != owner && set.Remove(member) {
				removed++
			}
		}
	}
	return removed
}

// RemoveKnownBadHosts removes every strict subdomain of a known-bad host from
// hosts. The known-bad hosts themselves are left alone. It returns the number
// of removed entries.
func RemoveKnownBadHosts(knownBad []string, hosts repository.DomainSet) int {
	known := make(map[string]struct{}, len(knownBad))
	for _, k := range knownBad {
		if k != "" {
			known[k] = struct{}{}
		}
	}
	if len(known) == 0 {
		return 0
	}

	removed := 0
	hosts.Range(func(host string) bool {
		for i := 0; i < len(host); i++ {
			if host[i] != '.' {
				continue
			}
			if _, ok := known[host[i+1:]]; ok {
				if hosts.Remove(host) {
					removed++
				}
				break
			}
		}
		return true
	})
	return removed
}
