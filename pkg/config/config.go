// Package config loads and validates the merge settings file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/WangYihang/Blocklist-Merger/pkg/domain/entity"
)

// DefaultOutputFileName is used when the settings file names no output
const DefaultOutputFileName = "filter.txt"

// ErrNoSources is returned when the settings list no sources
var ErrNoSources = errors.New("no sources configured")

// Settings is the settings file
type Settings struct {
	Filters         Filters  `json:"Filters" yaml:"Filters" toml:"Filters"`
	HeaderLines     []string `json:"HeaderLines" yaml:"HeaderLines" toml:"HeaderLines"`
	KnownBadHosts   []string `json:"KnownBadHosts" yaml:"KnownBadHosts" toml:"KnownBadHosts" validate:"dive,required"`
	ExtraFiltering  bool     `json:"ExtraFiltering" yaml:"ExtraFiltering" toml:"ExtraFiltering"`
	MultiPassFilter bool     `json:"MultiPassFilter" yaml:"MultiPassFilter" toml:"MultiPassFilter"`
	OutputFileName  string   `json:"OutputFileName" yaml:"OutputFileName" toml:"OutputFileName"`
}

// Filters lists the sources and the global skip tables
type Filters struct {
	Sources          []SourceItem `json:"Sources" yaml:"Sources" toml:"Sources" validate:"dive"`
	SkipLines        []string     `json:"SkipLines" yaml:"SkipLines" toml:"SkipLines"`
	SkipBlockedHosts []string     `json:"SkipBlockedHosts" yaml:"SkipBlockedHosts" toml:"SkipBlockedHosts"`
}

// SourceItem is one upstream list as written in the settings file
type SourceItem struct {
	URI          string              `json:"Uri" yaml:"Uri" toml:"Uri" validate:"required,source_uri"`
	Format       entity.SourceFormat `json:"Format" yaml:"Format" toml:"Format" validate:"gte=0,lte=1"`
	Prefix       string              `json:"Prefix" yaml:"Prefix" toml:"Prefix"`
	SourceAction entity.SourceAction `json:"SourceAction" yaml:"SourceAction" toml:"SourceAction" validate:"gte=0,lte=1"`
}

// Source converts the item to its runtime form
func (s SourceItem) Source() entity.Source {
	return entity.Source{
		URI:    s.URI,
		Format: s.Format,
		Prefix: s.Prefix,
		Action: s.SourceAction,
	}
}

// Sources returns the runtime form of every configured source
func (s *Settings) Sources() []entity.Source {
	sources := make([]entity.Source, len(s.Filters.Sources))
	for i, item := range s.Filters.Sources {
		sources[i] = item.Source()
	}
	return sources
}

// Load reads path and decodes it by extension: .yaml/.yml, .toml, anything else as JSON.
func Load(path string) (*Settings, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings, err := Decode(content, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return settings, nil
}

// FileFormat is the encoding of a settings file
type FileFormat string

const (
	// JSON is the appsettings.json shape
	JSON FileFormat = "json"
	// YAML settings
	YAML FileFormat = "yaml"
	// TOML settings
	TOML FileFormat = "toml"
)

// FormatFromPath picks the decoder for a file name
func FormatFromPath(path string) FileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".toml":
		return TOML
	}
	return JSON
}

// Decode parses content, applies defaults and validates the result
func Decode(content []byte, format FileFormat) (*Settings, error) {
	var settings Settings
	switch format {
	case YAML:
		if err := yaml.Unmarshal(content, &settings); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case TOML:
		if err := toml.Unmarshal(content, &settings); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				row, col := derr.Position()
				return nil, fmt.Errorf("failed to parse toml at line %d column %d: %w", row, col, err)
			}
			return nil, fmt.Errorf("failed to parse toml: %w", err)
		}
	default:
		// BOM-prefixed files are common for appsettings.json written on Windows
		content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
		if err := json.Unmarshal(content, &settings); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	}

	settings.applyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Settings) applyDefaults() {
	if s.OutputFileName == "" {
		s.OutputFileName = DefaultOutputFileName
	}
}
