package storage

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/WangYihang/Blocklist-Merger/pkg/domain/repository"
)

const shardCount = 32

type shard struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// DomainSet implements repository.DomainSet as a set of lock-sharded maps
type DomainSet struct {
	shards [shardCount]shard
}

// NewDomainSet creates an empty domain set
func NewDomainSet() *DomainSet {
	s := &DomainSet{}
	for i := range s.shards {
		s.shards[i].items = make(map[string]struct{})
	}
	return s
}

// NewDomainSetOf creates a domain set holding items
func NewDomainSetOf(items ...string) *DomainSet {
	s := NewDomainSet()
	for _, item := range items {
		s.Add(item)
	}
	return s
}

func (s *DomainSet) shardFor(domain string) *shard {
	return &s.shards[xxhash.Sum64String(domain)%shardCount]
}

// Add inserts a host name, reporting whether it was absent
func (s *DomainSet) Add(domain string) bool {
	sh := s.shardFor(domain)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.items[domain]; ok {
		return false
	}
	sh.items[domain] = struct{}{}
	return true
}

// Remove deletes a host name, reporting whether it was present
func (s *DomainSet) Remove(domain string) bool {
	sh := s.shardFor(domain)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.items[domain]; !ok {
		return false
	}
	delete(sh.items, domain)
	return true
}

// Contains checks membership
func (s *DomainSet) Contains(domain string) bool {
	sh := s.shardFor(domain)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	_, ok := sh.items[domain]
	return ok
}

// Len returns the number of members
func (s *DomainSet) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n
}

// Range walks a per-shard snapshot, so fn may mutate the set.
func (s *DomainSet) Range(fn func(domain string) bool) {
	var snapshot []string
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		snapshot = snapshot[:0]
		for item := range sh.items {
			snapshot = append(snapshot, item)
		}
		sh.mu.RUnlock()

		for _, item := range snapshot {
			if !fn(item) {
				return
			}
		}
	}
}

// Clear removes every member
func (s *DomainSet) Clear() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		clear(sh.items)
		sh.mu.Unlock()
	}
}

// Items returns the members in no particular order
func (s *DomainSet) Items() []string {
	items := make([]string, 0, s.Len())
	s.Range(func(domain string) bool {
		items = append(items, domain)
		return true
	})
	return items
}

// UnionWith adds every member of other
func (s *DomainSet) UnionWith(other repository.DomainSet) {
	other.Range(func(domain string) bool {
		s.Add(domain)
		return true
	})
}

// ExceptWith removes every member of other
func (s *DomainSet) ExceptWith(other repository.DomainSet) {
	other.Range(func(domain string) bool {
		s.Remove(domain)
		return true
	})
}
