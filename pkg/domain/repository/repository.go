package repository

import (
	"context"

	"github.com/WangYihang/Blocklist-Merger/pkg/domain/entity"
)

// DomainSet is a concurrency-safe set of host names
type DomainSet interface {
	// Add inserts a host name, reporting whether it was absent
	Add(domain string) bool
	// Remove deletes a host name, reporting whether it was present
	Remove(domain string) bool
	// Contains checks membership
	Contains(domain string) bool
	// Len returns the number of members
	Len() int
	// Range calls fn for every member until fn returns false.
	// fn may mutate the set.
	Range(fn func(domain string) bool)
	// Clear removes every member
	Clear()
	// Items returns the members in no particular order
	Items() []string
	// UnionWith adds every member of other
	UnionWith(other DomainSet)
	// ExceptWith removes every member of other
	ExceptWith(other DomainSet)
}

// ListWriter persists the merged block list
type ListWriter interface {
	// Write writes the merged list in one piece; a failed write leaves no partial output
	Write(ctx context.Context, list *entity.MergedList) error
}
