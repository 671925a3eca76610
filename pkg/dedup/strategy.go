package dedup

import (
	"fmt"
	"strings"
)

// Strategy selects how many coverage rounds ProcessCombined runs
type Strategy int

const (
	// SinglePass stops after the first round
	SinglePass Strategy = iota
	// MultiPass repeats with a growing window until a round marks nothing
	MultiPass
)

// StrategyFromMultiPass maps the MultiPassFilter setting to a Strategy
func StrategyFromMultiPass(multiPass bool) Strategy {
	if multiPass {
		return MultiPass
	}
	return SinglePass
}

// ParseStrategy parses "single" / "multi", with or without a "-pass" suffix
func ParseStrategy(s string) (Strategy, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "-pass") {
	case "single", "singlepass":
		return SinglePass, nil
	case "multi", "multipass":
		return MultiPass, nil
	}
	return SinglePass, fmt.Errorf("unknown coverage strategy %q", s)
}

// String returns the strategy name
func (s Strategy) String() string {
	switch s {
	case SinglePass:
		return "single-pass"
	case MultiPass:
		return "multi-pass"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}
