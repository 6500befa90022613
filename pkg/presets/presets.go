// Package presets bundles named parameter sets for known camera and lens
// combinations, so common rigs solve without a wall of flags.
package presets

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/astrolab/starsolve/pkg/errors"
)

//go:embed presets.yaml
var embeddedYAML []byte

// Preset is one named parameter bundle. Zero-valued fields fall back to the
// command defaults, so presets only pin what the rig actually constrains.
type Preset struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Database generation.
	MinFOV       float64 `yaml:"min_fov"`
	MaxFOV       float64 `yaml:"max_fov"`
	MaxMagnitude float64 `yaml:"max_magnitude"`

	// Solving.
	FOVEstimate float64 `yaml:"fov_estimate"`
	FOVMaxError float64 `yaml:"fov_max_error"`

	// Centroid extraction.
	MinSum       float64 `yaml:"min_sum"`
	MaxAxisRatio float64 `yaml:"max_axis_ratio"`
	MinDistance  int     `yaml:"min_distance"`
}

// Set is a loaded collection of presets, keyed by name.
type Set struct {
	presets map[string]Preset
}

// Embedded returns the preset set compiled into the binary.
func Embedded() (*Set, error) {
	return Parse(embeddedYAML)
}

// Parse loads presets from YAML. Each entry needs a unique name.
func Parse(raw []byte) (*Set, error) {
	var list []Preset
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, errors.WrapParse("yaml", "presets", err)
	}

	s := &Set{presets: make(map[string]Preset, len(list))}
	for _, p := range list {
		if p.Name == "" {
			return nil, errors.NewValidationError("name", "", "preset is missing a name")
		}
		if _, dup := s.presets[p.Name]; dup {
			return nil, errors.NewValidationError("name", p.Name,
				fmt.Sprintf("duplicate preset %q", p.Name))
		}
		s.presets[p.Name] = p
	}
	return s, nil
}

// Get looks a preset up by name.
func (s *Set) Get(name string) (Preset, error) {
	p, ok := s.presets[name]
	if !ok {
		return Preset{}, errors.NewNotFoundError("preset", name,
			fmt.Sprintf("Known presets: %v. List them with the 'presets' command.", s.Names()))
	}
	return p, nil
}

// Names returns the preset names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the presets sorted by name.
func (s *Set) All() []Preset {
	all := make([]Preset, 0, len(s.presets))
	for _, name := range s.Names() {
		all = append(all, s.presets[name])
	}
	return all
}
