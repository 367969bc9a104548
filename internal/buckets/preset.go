package buckets

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cd3-tool/cd3/internal/types"
)

// Preset is a shareable bucket configuration. Fields left out of a preset
// keep their current values when it is applied.
//
//	name = "platform team"
//
//	[urgency.3]
//	weight = 8
//	limit = 2
type Preset struct {
	Name     string                  `toml:"name,omitempty" yaml:"name,omitempty"`
	Urgency  map[string]PresetBucket `toml:"urgency,omitempty" yaml:"urgency,omitempty"`
	Value    map[string]PresetBucket `toml:"value,omitempty" yaml:"value,omitempty"`
	Duration map[string]PresetBucket `toml:"duration,omitempty" yaml:"duration,omitempty"`
}

// PresetBucket overrides some or all fields of one bucket. A limit of -1
// clears it.
type PresetBucket struct {
	Limit       *int     `toml:"limit,omitempty" yaml:"limit,omitempty"`
	Weight      *float64 `toml:"weight,omitempty" yaml:"weight,omitempty"`
	Title       *string  `toml:"title,omitempty" yaml:"title,omitempty"`
	Description *string  `toml:"description,omitempty" yaml:"description,omitempty"`
}

func (p *Preset) category(c types.Category) map[string]PresetBucket {
	switch c {
	case types.CategoryUrgency:
		return p.Urgency
	case types.CategoryValue:
		return p.Value
	case types.CategoryDuration:
		return p.Duration
	}
	return nil
}

// LoadPreset reads a preset file. Files ending in .yaml or .yml are read
// as YAML, everything else as TOML.
func LoadPreset(path string) (*Preset, error) {
	// #nosec G304 - path is supplied by the user on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParsePresetYAML(data)
	}
	return ParsePresetTOML(data)
}

// ParsePresetTOML parses a preset from TOML bytes.
func ParsePresetTOML(data []byte) (*Preset, error) {
	var p Preset
	md, err := toml.Decode(string(data), &p)
	if err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("toml: unknown keys %v", undecoded)
	}
	return &p, nil
}

// ParsePresetYAML parses a preset from YAML bytes.
func ParsePresetYAML(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return &p, nil
}

// Validate checks every override in the preset without applying any.
func (p *Preset) Validate() error {
	for _, c := range types.Categories() {
		for key, pb := range p.category(c) {
			if _, err := parsePresetLevel(key); err != nil {
				return fmt.Errorf("%s.%s: %w", c, key, err)
			}
			if pb.Limit != nil && *pb.Limit < -1 {
				return fmt.Errorf("%s.%s: limit must be a non-negative integer (got %d)", c, key, *pb.Limit)
			}
			if pb.Weight != nil {
				w := *pb.Weight
				if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
					return fmt.Errorf("%s.%s: weight must be a non-negative number (got %v)", c, key, w)
				}
			}
			if pb.Title != nil && strings.TrimSpace(*pb.Title) == "" {
				return fmt.Errorf("%s.%s: title is required", c, key)
			}
		}
	}
	return nil
}

func parsePresetLevel(key string) (types.Level, error) {
	n, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil || !types.Level(n).IsValid() {
		return 0, fmt.Errorf("level must be between 1 and 3 (got %q)", key)
	}
	return types.Level(n), nil
}

// ApplyPreset validates the whole preset and then writes it into table.
// On error table is untouched. It returns the categories whose weights
// changed.
func ApplyPreset(table types.BucketTable, p *Preset) ([]types.Category, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var affected []types.Category
	for _, c := range types.Categories() {
		weightChanged := false
		for key, pb := range p.category(c) {
			l, _ := parsePresetLevel(key)
			b, _ := lookup(table, c, l)
			if pb.Limit != nil {
				if *pb.Limit < 0 {
					b.Limit = nil
				} else {
					lim := *pb.Limit
					b.Limit = &lim
				}
			}
			if pb.Weight != nil && *pb.Weight != b.Weight {
				b.Weight = *pb.Weight
				weightChanged = true
			}
			if pb.Title != nil {
				b.Title = strings.TrimSpace(*pb.Title)
			}
			if pb.Description != nil {
				b.Description = strings.TrimSpace(*pb.Description)
			}
			b.OverLimit = b.Limit != nil && b.Count > *b.Limit
			table.Put(c, l, b)
		}
		if weightChanged {
			affected = append(affected, c)
		}
	}
	return affected, nil
}

// ExportPreset captures the full table as a preset.
func ExportPreset(name string, table types.BucketTable) *Preset {
	p := &Preset{
		Name:     name,
		Urgency:  map[string]PresetBucket{},
		Value:    map[string]PresetBucket{},
		Duration: map[string]PresetBucket{},
	}
	for _, c := range types.Categories() {
		dst := p.category(c)
		for _, l := range types.Levels() {
			b, ok := table.Get(c, l)
			if !ok {
				b = types.DefaultBucket(c, l)
			}
			w, title, desc := b.Weight, b.Title, b.Description
			pb := PresetBucket{Weight: &w, Title: &title, Description: &desc}
			if b.Limit != nil {
				lim := *b.Limit
				pb.Limit = &lim
			}
			dst[strconv.Itoa(int(l))] = pb
		}
	}
	return p
}

// WriteTOML encodes the preset as TOML.
func (p *Preset) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(p)
}

// WriteYAML encodes the preset as YAML.
func (p *Preset) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}
