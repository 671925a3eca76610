package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SourceFormat is the dialect a source list is written in
type SourceFormat int

const (
	// FormatHosts is the hosts-file dialect: "0.0.0.0 example.com"
	FormatHosts SourceFormat = iota
	// FormatAdBlock is the AdBlock dialect: "||example.com^" and "@@||example.com^"
	FormatAdBlock
)

// String returns the settings-file spelling of the format
func (f SourceFormat) String() string {
	switch f {
	case FormatHosts:
		return "Hosts"
	case FormatAdBlock:
		return "AdBlock"
	}
	return fmt.Sprintf("SourceFormat(%d)", int(f))
}

// MarshalText implements encoding.TextMarshaler
func (f SourceFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, case-insensitively
func (f *SourceFormat) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "hosts":
		*f = FormatHosts
	case "adblock":
		*f = FormatAdBlock
	default:
		n, err := strconv.Atoi(string(text))
		if err != nil || n < int(FormatHosts) || n > int(FormatAdBlock) {
			return fmt.Errorf("unknown source format %q", text)
		}
		*f = SourceFormat(n)
	}
	return nil
}

// UnmarshalJSON accepts the name or the numeric value of the format
func (f *SourceFormat) UnmarshalJSON(data []byte) error {
	text, err := enumText(data)
	if err != nil {
		return fmt.Errorf("invalid source format: %w", err)
	}
	return f.UnmarshalText(text)
}

// SourceAction says which set a source contributes to
type SourceAction int

const (
	// ActionCombine merges the source into the combine set
	ActionCombine SourceAction = iota
	// ActionExternalCoverage marks the source as already deployed elsewhere
	ActionExternalCoverage
)

// String returns the settings-file spelling of the action
func (a SourceAction) String() string {
	switch a {
	case ActionCombine:
		return "Combine"
	case ActionExternalCoverage:
		return "ExternalCoverage"
	}
	return fmt.Sprintf("SourceAction(%d)", int(a))
}

// MarshalText implements encoding.TextMarshaler
func (a SourceAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, case-insensitively
func (a *SourceAction) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "combine":
		*a = ActionCombine
	case "externalcoverage":
		*a = ActionExternalCoverage
	default:
		n, err := strconv.Atoi(string(text))
		if err != nil || n < int(ActionCombine) || n > int(ActionExternalCoverage) {
			return fmt.Errorf("unknown source action %q", text)
		}
		*a = SourceAction(n)
	}
	return nil
}

// UnmarshalJSON accepts the name or the numeric value of the action
func (a *SourceAction) UnmarshalJSON(data []byte) error {
	text, err := enumText(data)
	if err != nil {
		return fmt.Errorf("invalid source action: %w", err)
	}
	return a.UnmarshalText(text)
}

// enumText returns a JSON string's contents, or a JSON number as written
func enumText(data []byte) ([]byte, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return []byte(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return []byte(n.String()), nil
}

// Source is one upstream list
type Source struct {
	URI    string
	Format SourceFormat
	// Prefix is stripped from hosts lines; empty means no stripping
	Prefix string
	Action SourceAction
}
