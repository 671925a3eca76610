// Package dedup removes list entries that are already covered by a parent
// domain, either inside the list or in an external coverage set.
package dedup

import (
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/WangYihang/Blocklist-Merger/pkg/domain"
	"github.com/WangYihang/Blocklist-Merger/pkg/domain/repository"
)

// DefaultWindow is the neighbourhood scanned per entry in the first round
const DefaultWindow = 250

// chunkSize is the number of outer indices a worker claims at a time
const chunkSize = 256

// RoundFunc is called after every coverage round
type RoundFunc func(round, window, removed int)

// Filter runs the coverage passes
type Filter struct {
	Window   int
	Workers  int
	Strategy Strategy
	OnRound  RoundFunc
}

// Option configures a Filter
type Option func(*Filter)

// WithWindow sets the first-round window
func WithWindow(window int) Option {
	return func(f *Filter) { f.Window = window }
}

// WithWorkers sets the number of scanning goroutines
func WithWorkers(workers int) Option {
	return func(f *Filter) { f.Workers = workers }
}

// WithStrategy selects single or multi pass
func WithStrategy(s Strategy) Option {
	return func(f *Filter) { f.Strategy = s }
}

// WithRoundHook registers a callback run after every round
func WithRoundHook(fn RoundFunc) Option {
	return func(f *Filter) { f.OnRound = fn }
}

// NewFilter creates a new coverage filter
func NewFilter(opts ...Option) *Filter {
	f := &Filter{
		Window:   DefaultWindow,
		Workers:  runtime.GOMAXPROCS(0),
		Strategy: SinglePass,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.Window <= 0 {
		f.Window = DefaultWindow
	}
	if f.Workers <= 0 {
		f.Workers = 1
	}
	return f
}

// Result is the outcome of a coverage pass
type Result struct {
	// Domains are the survivors in canonical order
	Domains []string
	// Rounds holds the number of entries removed by each round
	Rounds []int
}

// Removed is the total across rounds
func (r Result) Removed() int {
	total := 0
	for _, n := range r.Rounds {
		total += n
	}
	return total
}

// ProcessCombined removes every entry of list that is a strict subdomain of
// another entry found within the window. Round r uses a window of r*Window.
// After the first round every entry present in external is removed as well.
// MultiPass repeats until a round marks nothing; SinglePass stops after one round.
// scratch is cleared at the start of every round.
func (f *Filter) ProcessCombined(list []string, external, scratch repository.DomainSet) Result {
	list = ensureSorted(list)

	var rounds []int
	for round := 1; ; round++ {
		scratch.Clear()
		window := roundWindow(round, f.Window, len(list))
		f.scanWindow(list, window, scratch)
		marked := scratch.Len()

		before := len(list)
		list = slices.DeleteFunc(list, func(item string) bool {
			return scratch.Contains(item) || (round == 1 && external.Contains(item))
		})
		removed := before - len(list)
		rounds = append(rounds, removed)

		if f.OnRound != nil {
			f.OnRound(round, window, removed)
		}
		if f.Strategy == SinglePass || marked == 0 {
			break
		}
	}
	return Result{Domains: list, Rounds: rounds}
}

// ProcessWithExtraFiltering scans the whole of list once per external entry
// and removes every strict subdomain of it. External entries that are in the
// list themselves are kept.
func (f *Filter) ProcessWithExtraFiltering(list []string, external, scratch repository.DomainSet) Result {
	list = ensureSorted(list)
	scratch.Clear()

	covering := domain.SortSet(external)
	f.parallel(len(covering), func(i int) {
		parent := covering[i]
		for _, item := range list {
			if domain.IsSubDomainOf(item, parent) {
				scratch.Add(item)
			}
		}
	})

	before := len(list)
	if scratch.Len() > 0 {
		list = slices.DeleteFunc(list, scratch.Contains)
	}
	return Result{Domains: list, Rounds: []int{before - len(list)}}
}

func (f *Filter) scanWindow(list []string, window int, scratch repository.DomainSet) {
	n := len(list)
	f.parallel(n, func(i int) {
		item := list[i]
		end := n
		if window < n-i {
			end = i + window
		}
		for j := i + 1; j < end; j++ {
			sub := list[j]
			if len(item)+1 > len(sub) || item == sub {
				continue
			}
			if domain.IsSubDomainOf(sub, item) {
				scratch.Add(sub)
			}
		}
	})
}

// roundWindow returns round*step, capped at n. A window of n already covers
// the whole list.
func roundWindow(round, step, n int) int {
	if step <= 0 || step >= n || round > n/step {
		return n
	}
	return round * step
}

// parallel calls fn for every index in [0, n) on f.Workers goroutines and
// returns once all calls have finished.
func (f *Filter) parallel(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	workers := min(f.Workers, (n+chunkSize-1)/chunkSize)
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				start := int(next.Add(chunkSize)) - chunkSize
				if start >= n {
					return
				}
				for i := start; i < min(start+chunkSize, n); i++ {
					fn(i)
				}
			}
		}()
	}
	wg.Wait()
}

// ensureSorted returns list in canonical order. Survivors of a sorted list
// stay sorted, so later rounds only pay for the check.
func ensureSorted(list []string) []string {
	if slices.IsSortedFunc(list, domain.Compare) {
		return slices.Clone(list)
	}
	return domain.SortDomains(list)
}
