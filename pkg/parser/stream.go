package parser

import (
	"fmt"
	"io"

	"github.com/WangYihang/Blocklist-Merger/pkg/input"
)

// Sink receives accepted host names. Add reports whether the name was new.
type Sink interface {
	Add(item string) bool
}

// Stats counts the lines of one stream by outcome
type Stats struct {
	Lines      int
	Allowed    int
	Duplicates int
	counts     [reasonCount]int
}

// Count returns the number of lines with the given outcome
func (s Stats) Count(r Reason) int {
	if r < 0 || r >= reasonCount {
		return 0
	}
	return s.counts[r]
}

// Accepted returns the number of lines that yielded a host name
func (s Stats) Accepted() int {
	return s.counts[Accepted]
}

// Rejected returns the number of lines that yielded nothing
func (s Stats) Rejected() int {
	return s.Lines - s.counts[Accepted]
}

// Map returns the non-zero counts keyed by Reason.String
func (s Stats) Map() map[string]int {
	m := make(map[string]int, reasonCount)
	for _, r := range Reasons() {
		if n := s.counts[r]; n > 0 {
			m[r.String()] = n
		}
	}
	return m
}

func (s *Stats) record(r Reason) {
	s.Lines++
	s.counts[r]++
}

// HostsOptions configures ParseHosts
type HostsOptions struct {
	SkipLines        Matcher
	SkipBlockedHosts Matcher
	Prefix           Prefix
}

// ParseHosts reads a hosts-file stream and adds every host to dst
func ParseHosts(r io.Reader, dst Sink, opts HostsOptions) (Stats, error) {
	var stats Stats
	lr := input.NewLineReader(r)
	for lr.Scan() {
		host, reason := ParseHostsLine(lr.Bytes(), opts.SkipLines, opts.SkipBlockedHosts, opts.Prefix)
		stats.record(reason)
		if reason == Accepted && !dst.Add(host) {
			stats.Duplicates++
		}
	}
	if err := lr.Err(); err != nil {
		return stats, fmt.Errorf("failed to read hosts list: %w", err)
	}
	return stats, nil
}

// ParseAdBlock reads an AdBlock stream, adding blocking rules to block and
// exception rules to allow.
func ParseAdBlock(r io.Reader, block, allow Sink, skipBlockedHosts Matcher) (Stats, error) {
	var stats Stats
	lr := input.NewLineReader(r)
	for lr.Scan() {
		host, isAllow, reason := ParseAdBlockLine(lr.Bytes(), skipBlockedHosts)
		stats.record(reason)
		if reason != Accepted {
			continue
		}

		dst := block
		if isAllow {
			dst = allow
			stats.Allowed++
		}
		if !dst.Add(host) {
			stats.Duplicates++
		}
	}
	if err := lr.Err(); err != nil {
		return stats, fmt.Errorf("failed to read adblock list: %w", err)
	}
	return stats, nil
}
