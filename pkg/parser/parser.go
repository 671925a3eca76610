// Package parser extracts host names from hosts-file and AdBlock list lines.
package parser

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Matcher tests a raw line or host against a fixed skip table, byte for byte
type Matcher interface {
	Match(b []byte) bool
}

// Prefix is the leading text stripped from hosts lines, e.g. "0.0.0.0 ".
// WWW is the same prefix followed by "www.".
type Prefix struct {
	Plain []byte
	WWW   []byte
}

// NewPrefix builds a Prefix from a settings value. An empty value disables stripping.
func NewPrefix(prefix string) Prefix {
	if prefix == "" {
		return Prefix{}
	}
	return Prefix{
		Plain: []byte(prefix),
		WWW:   []byte(prefix + "www."),
	}
}

// IsZero reports whether no prefix is configured
func (p Prefix) IsZero() bool {
	return len(p.Plain) == 0
}

// Reason is the outcome of parsing one line
type Reason int

const (
	// Accepted means the line yielded a host name
	Accepted Reason = iota
	// RejectedEmpty is an empty or blank line
	RejectedEmpty
	// RejectedComment is a "#" or "!" comment line
	RejectedComment
	// RejectedSkipLine is a line listed verbatim in the skip-lines table
	RejectedSkipLine
	// RejectedSkipHost is a host listed in the skip-blocked-hosts table
	RejectedSkipHost
	// RejectedMalformed is a line that does not follow the dialect
	RejectedMalformed

	reasonCount
)

// String returns the reason as used in logs and metric labels
func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectedEmpty:
		return "empty"
	case RejectedComment:
		return "comment"
	case RejectedSkipLine:
		return "skip_line"
	case RejectedSkipHost:
		return "skip_host"
	case RejectedMalformed:
		return "malformed"
	}
	return "unknown"
}

// Reasons lists every Reason in order
func Reasons() []Reason {
	reasons := make([]Reason, 0, reasonCount)
	for r := Accepted; r < reasonCount; r++ {
		reasons = append(reasons, r)
	}
	return reasons
}

func matches(m Matcher, b []byte) bool {
	return m != nil && m.Match(b)
}

func isBlank(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}

// ParseHostsLine extracts the host name from one hosts-file line.
//
// The rules apply in order: empty lines, comments and verbatim skip lines are
// rejected; the www-prefixed form of the prefix is stripped unless what remains
// is a skip-blocked host, in which case the plain prefix is tried instead and a
// skip-blocked remainder is rejected; a trailing "#comment" is cut off; the
// rest is trimmed and must not be empty.
func ParseHostsLine(line []byte, skipLines, skipBlockedHosts Matcher, prefix Prefix) (string, Reason) {
	if len(line) == 0 {
		return "", RejectedEmpty
	}

	lead := bytes.TrimLeft(line, " \t")
	if len(lead) == 0 {
		return "", RejectedEmpty
	}
	if lead[0] == '#' {
		return "", RejectedComment
	}
	if matches(skipLines, line) {
		return "", RejectedSkipLine
	}

	rest := line
	if !prefix.IsZero() {
		stripped := false
		if bytes.HasPrefix(line, prefix.WWW) {
			if r := line[len(prefix.WWW):]; !matches(skipBlockedHosts, r) {
				rest = r
				stripped = true
			}
		}
		if !stripped && bytes.HasPrefix(line, prefix.Plain) {
			r := line[len(prefix.Plain):]
			if matches(skipBlockedHosts, r) {
				return "", RejectedSkipHost
			}
			rest = r
		}
	}

	if i := bytes.IndexByte(rest, '#'); i > 0 {
		rest = rest[:i]
	}
	rest = bytes.TrimSpace(rest)
	if len(rest) == 0 {
		return "", RejectedEmpty
	}
	return decode(rest), Accepted
}

// ParseAdBlockLine extracts the host name from one AdBlock line. allow is
// true for "@@" exception rules, whose value keeps its "||" framing.
func ParseAdBlockLine(line []byte, skipBlockedHosts Matcher) (host string, allow bool, reason Reason) {
	if len(line) == 0 {
		return "", false, RejectedEmpty
	}

	switch line[0] {
	case '|':
	case '@':
		allow = true
	case '!':
		return "", false, RejectedComment
	default:
		if isBlank(line) {
			return "", false, RejectedEmpty
		}
		return "", false, RejectedMalformed
	}

	delim := byte('|')
	if allow {
		delim = '@'
	}
	rest := line[bytes.LastIndexByte(line, delim)+1:]

	if i := bytes.IndexByte(rest, '^'); i > 0 {
		rest = rest[:i]
	}
	if isBlank(rest) {
		return "", false, RejectedEmpty
	}
	if matches(skipBlockedHosts, rest) {
		return "", false, RejectedSkipHost
	}

	rest = bytes.TrimSpace(rest)
	if len(rest) == 0 {
		return "", false, RejectedEmpty
	}
	return decode(rest), allow, Accepted
}

// decode converts b to a string, replacing every invalid byte with U+FFFD.
func decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b) + 8)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}
