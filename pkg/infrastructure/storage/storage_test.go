package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WangYihang/Blocklist-Merger/pkg/domain/entity"
	"github.com/WangYihang/Blocklist-Merger/pkg/domain/repository"
)

var _ repository.DomainSet = (*DomainSet)(nil)
var _ repository.ListWriter = (*ListWriter)(nil)

func TestDomainSet_Basic(t *testing.T) {
	set := NewDomainSet()

	assert.True(t, set.Add("example.com"))
	assert.False(t, set.Add("example.com"))
	assert.True(t, set.Contains("example.com"))
	assert.False(t, set.Contains("example.org"))
	assert.Equal(t, 1, set.Len())

	assert.True(t, set.Remove("example.com"))
	assert.False(t, set.Remove("example.com"))
	assert.Zero(t, set.Len())
}

func TestDomainSet_SetOperations(t *testing.T) {
	set := NewDomainSetOf("a.com", "b.com", "c.com")
	set.ExceptWith(NewDomainSetOf("b.com", "z.com"))
	assert.ElementsMatch(t, []string{"a.com", "c.com"}, set.Items())

	set.UnionWith(NewDomainSetOf("c.com", "d.com"))
	assert.ElementsMatch(t, []string{"a.com", "c.com", "d.com"}, set.Items())

	set.Clear()
	assert.Zero(t, set.Len())
	assert.Empty(t, set.Items())
}

func TestDomainSet_RangeMayMutate(t *testing.T) {
	set := NewDomainSetOf("a.com", "b.com", "c.com")
	set.Range(func(d string) bool {
		set.Remove(d)
		return true
	})
	assert.Zero(t, set.Len())
}

func TestDomainSet_RangeStops(t *testing.T) {
	set := NewDomainSetOf("a.com", "b.com", "c.com")
	visited := 0
	set.Range(func(string) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}

func TestDomainSet_ConcurrentAdd(t *testing.T) {
	set := NewDomainSet()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				set.Add(fmt.Sprintf("host%d.example.com", i))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, set.Len())
}

func TestByteMatcher(t *testing.T) {
	m := NewByteMatcher([]string{"0.0.0.0 0.0.0.0", "b-cdn.net"})

	assert.True(t, m.Match([]byte("b-cdn.net")))
	assert.True(t, m.Match([]byte("0.0.0.0 0.0.0.0")))
	assert.False(t, m.Match([]byte("b-cdn.net ")))
	assert.False(t, m.Match([]byte("B-CDN.NET")))
	assert.False(t, m.Match(nil))
	assert.Equal(t, 2, m.Len())
}

func TestByteMatcher_Empty(t *testing.T) {
	var nilMatcher *ByteMatcher
	assert.False(t, nilMatcher.Match([]byte("x")))
	assert.False(t, nilMatcher.Match(nil))
	assert.Zero(t, nilMatcher.Len())

	m := NewByteMatcher(nil)
	assert.False(t, m.Match([]byte("")))
}

func TestListWriter_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.txt")
	w := NewListWriter(path, []string{"! Title: Merged", "! Entries: {{count}} (+{{allowed}}) {{version}} {{unknown}}"}, "v1.0.0")

	err := w.Write(context.Background(), &entity.MergedList{
		Domains:        []string{"dns.com", "second.co.jp"},
		AllowOverrides: []string{"||dns-d.com"},
		GeneratedAt:    time.Date(2024, 3, 5, 7, 8, 9, 0, time.FixedZone("CET", 3600)),
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "! Title: Merged\n"+
		"! Entries: 2 (+1) v1.0.0 {{unknown}}\n"+
		"! Last Modified: 2024-03-05 06:08:09Z\n"+
		"\n||dns.com^"+
		"\n||second.co.jp^"+
		"\n@@||dns-d.com^", string(content))
	assert.Equal(t, path, w.Path())
}

func TestListWriter_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filter.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	w := NewListWriter(path, nil, "")
	require.NoError(t, w.Write(context.Background(), &entity.MergedList{Domains: []string{"a.com"}}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "\n||a.com^")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestListWriter_Errors(t *testing.T) {
	w := NewListWriter(filepath.Join(t.TempDir(), "missing", "filter.txt"), nil, "")
	assert.Error(t, w.Write(context.Background(), &entity.MergedList{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w = NewListWriter(filepath.Join(t.TempDir(), "filter.txt"), nil, "")
	assert.ErrorIs(t, w.Write(ctx, &entity.MergedList{}), context.Canceled)
}
