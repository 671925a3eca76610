package parser

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WangYihang/Blocklist-Merger/pkg/infrastructure/storage"
)

var hostsLines = []string{
	"#",
	"some bad line",
	"another bad line",
	"0.0.0.0 0.0.0.0",
	"# commented",
	"",
	" #",
	"0.0.0.0  dns-a.com",
	"0.0.0.0 www.dns-a.com",
	"dns-a.com",
	" \t #",
	"0.0.0.0 dns-b.com",
	"0.0.0.0 dns-c.com #Comment",
	"0.0.0.0 www.b-cdn.net",
}

var adBlockLines = []string{
	"!a comment",
	"!another comment",
	"||dns-a.com^",
	"||dns-b.com^",
	"|| ",
	" \t",
	"ab",
	"||dns-c.com^ #Comment",
	"@@||dns-d.com^",
	"||www.b-cdn.net^",
	"",
	"@@||explicit.com^|",
}

func skipLines() Matcher {
	return storage.NewByteMatcher([]string{"some bad line", "another bad line", "0.0.0.0 0.0.0.0"})
}

func skipBlocked() Matcher {
	return storage.NewByteMatcher([]string{"b-cdn.net"})
}

func TestParseHosts(t *testing.T) {
	set := storage.NewDomainSet()
	stats, err := ParseHosts(strings.NewReader(strings.Join(hostsLines, "\n")), set, HostsOptions{
		SkipLines:        skipLines(),
		SkipBlockedHosts: skipBlocked(),
		Prefix:           NewPrefix("0.0.0.0 "),
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"dns-a.com", "dns-b.com", "dns-c.com", "www.b-cdn.net"}, set.Items())
	assert.Equal(t, len(hostsLines), stats.Lines)
	assert.Equal(t, 6, stats.Accepted())
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 3, stats.Count(RejectedSkipLine))
	assert.Equal(t, 4, stats.Count(RejectedComment))
	assert.Equal(t, 1, stats.Count(RejectedEmpty))
	assert.Equal(t, stats.Lines-6, stats.Rejected())
}

func TestParseHostsLine(t *testing.T) {
	prefix := NewPrefix("0.0.0.0 ")
	tests := []struct {
		name     string
		line     string
		expected string
		reason   Reason
	}{
		{"empty", "", "", RejectedEmpty},
		{"blank", " \t ", "", RejectedEmpty},
		{"comment", "# note", "", RejectedComment},
		{"indented comment", " \t# note", "", RejectedComment},
		{"skip line", "some bad line", "", RejectedSkipLine},
		{"skip line is exact", "some bad line ", "some bad line", Accepted},
		{"plain prefix", "0.0.0.0 example.com", "example.com", Accepted},
		{"www prefix", "0.0.0.0 www.example.com", "example.com", Accepted},
		{"www falls back to plain", "0.0.0.0 www.b-cdn.net", "www.b-cdn.net", Accepted},
		{"skip host after plain prefix", "0.0.0.0 b-cdn.net", "", RejectedSkipHost},
		{"no prefix is not checked against skip hosts", "b-cdn.net", "b-cdn.net", Accepted},
		{"trailing comment", "0.0.0.0 example.com # ads", "example.com", Accepted},
		{"prefix only", "0.0.0.0 ", "", RejectedEmpty},
		{"carriage return trimmed", "0.0.0.0 example.com\r", "example.com", Accepted},
		{"invalid utf8 replaced", "0.0.0.0 ex\xffample.com", "ex\uFFFDample.com", Accepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, reason := ParseHostsLine([]byte(tt.line), skipLines(), skipBlocked(), prefix)
			assert.Equal(t, tt.reason, reason)
			if tt.reason == Accepted {
				assert.Equal(t, tt.expected, host)
			}
		})
	}
}

func TestParseHostsLineWithoutPrefix(t *testing.T) {
	host, reason := ParseHostsLine([]byte("0.0.0.0 example.com"), nil, nil, NewPrefix(""))
	assert.Equal(t, Accepted, reason)
	assert.Equal(t, "0.0.0.0 example.com", host)
	assert.True(t, NewPrefix("").IsZero())
}

func TestParseAdBlock(t *testing.T) {
	block := storage.NewDomainSet()
	allow := storage.NewDomainSet()
	stats, err := ParseAdBlock(strings.NewReader(strings.Join(adBlockLines, "\n")), block, allow, skipBlocked())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"dns-a.com", "dns-b.com", "dns-c.com", "www.b-cdn.net"}, block.Items())
	assert.ElementsMatch(t, []string{"||dns-d.com", "||explicit.com"}, allow.Items())
	assert.Equal(t, 6, stats.Accepted())
	assert.Equal(t, 2, stats.Allowed)
	assert.Equal(t, 2, stats.Count(RejectedComment))
	assert.Equal(t, 1, stats.Count(RejectedMalformed))
	assert.Equal(t, 3, stats.Count(RejectedEmpty))
	assert.Equal(t, map[string]int{"accepted": 6, "comment": 2, "empty": 3, "malformed": 1}, stats.Map())
}

func TestParseAdBlockLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
		allow    bool
		reason   Reason
	}{
		{"block", "||example.com^", "example.com", false, Accepted},
		{"block with options", "||example.com^$third-party", "example.com", false, Accepted},
		{"allow keeps framing", "@@||example.com^", "||example.com", true, Accepted},
		{"single bar", "|example.com", "example.com", false, Accepted},
		{"skip host", "||b-cdn.net^", "", false, RejectedSkipHost},
		{"blank rule", "||   ^", "", false, RejectedEmpty},
		{"comment", "! Title", "", false, RejectedComment},
		{"hosts line", "0.0.0.0 example.com", "", false, RejectedMalformed},
		{"caret first is kept", "||^x", "^x", false, Accepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, allow, reason := ParseAdBlockLine([]byte(tt.line), skipBlocked())
			assert.Equal(t, tt.reason, reason)
			if tt.reason == Accepted {
				assert.Equal(t, tt.expected, host)
				assert.Equal(t, tt.allow, allow)
			}
		})
	}
}

func TestParseHostsReadError(t *testing.T) {
	boom := errors.New("boom")
	set := storage.NewDomainSet()
	_, err := ParseHosts(iotest.ErrReader(boom), set, HostsOptions{})
	assert.ErrorIs(t, err, boom)
}

func TestReasonString(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Reasons() {
		seen[r.String()] = true
	}
	assert.Len(t, seen, int(reasonCount))
	assert.Equal(t, "unknown", Reason(99).String())
}
