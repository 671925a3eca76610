package entity

import "time"

// MergedList is the final result handed to the list writer
type MergedList struct {
	// Domains are blocked host names in canonical order
	Domains []string
	// AllowOverrides are "@@" rules carried through from AdBlock sources, ordinally sorted
	AllowOverrides []string
	// GeneratedAt is rendered as the "Last Modified" header
	GeneratedAt time.Time
}
