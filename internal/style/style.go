// Package style holds the tunable constants that shape the dandelion effect.
package style

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var defaultsYAML []byte

// DecayMode selects when a seed starts fading.
type DecayMode string

const (
	// DecayBoundary fades a seed only after it has left the canvas rectangle
	// [0,width]x[-inf,height]. Once started the fade never stops.
	DecayBoundary DecayMode = "boundary"
	// DecayContinuous fades every seed on every frame regardless of position.
	DecayContinuous DecayMode = "continuous"
)

// Layout selects how emitters are placed on the canvas.
type Layout string

const (
	// LayoutCenter places emitters on a deterministic horizontal row at 75% height.
	LayoutCenter Layout = "center"
	// LayoutScatter places emitters at random positions in the lower half on every resize.
	LayoutScatter Layout = "scatter"
)

// ErrUnknownStyle is returned when a preset name is not defined.
var ErrUnknownStyle = errors.New("unknown style")

// Colors are hex strings such as "#88b04b".
type Colors struct {
	Seed  string `yaml:"seed"`
	Disk  string `yaml:"disk"`
	Stem  string `yaml:"stem"`
	Petal string `yaml:"petal"`
}

// Style is one complete set of simulation and drawing constants.
type Style struct {
	Name string `yaml:"-"`

	Layout   Layout `yaml:"layout"`
	Emitters int    `yaml:"emitters"`

	VolumeThreshold float64 `yaml:"volume_threshold"`
	MaxParticles    int     `yaml:"max_particles"`
	SpawnCap        int     `yaml:"spawn_cap"`
	SpawnDivisor    float64 `yaml:"spawn_divisor"`

	Gravity   float64 `yaml:"gravity"`
	Drag      float64 `yaml:"drag"`
	WindScale float64 `yaml:"wind_scale"`

	SizeMin float64 `yaml:"size_min"`
	SizeMax float64 `yaml:"size_max"`
	DriftX  float64 `yaml:"drift_x"`  // max |vx| at spawn
	RiseMin float64 `yaml:"rise_min"` // upward speed range at spawn
	RiseMax float64 `yaml:"rise_max"`
	Spin    float64 `yaml:"spin"` // max |angular velocity|

	Decay     DecayMode `yaml:"decay"`
	DecayRate float64   `yaml:"decay_rate"`

	Petals       int     `yaml:"petals"`
	PetalDivisor float64 `yaml:"petal_divisor"`
	PetalLength  float64 `yaml:"petal_length"`
	SeedAspect   float64 `yaml:"seed_aspect"` // body width / height
	PappusLines  int     `yaml:"pappus_lines"`
	PappusLength float64 `yaml:"pappus_length"`
	DiskRadius   float64 `yaml:"disk_radius"`
	StemWidth    float64 `yaml:"stem_width"`

	Colors Colors `yaml:"colors"`
}

// Palette is the parsed form of Colors.
type Palette struct {
	Seed  colorful.Color
	Disk  colorful.Color
	Stem  colorful.Color
	Petal colorful.Color
}

// Set is a collection of named styles plus the one used when none is chosen.
type Set struct {
	Default string           `yaml:"default"`
	Styles  map[string]Style `yaml:"styles"`
}

// Load parses the embedded presets and overlays the YAML file at path, if any.
// Styles in the file replace or extend the built-in ones field by field.
func Load(path string) (*Set, error) {
	set := &Set{}
	if err := yaml.Unmarshal(defaultsYAML, set); err != nil {
		return nil, fmt.Errorf("parsing embedded styles: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading style file: %w", err)
		}
		if err := set.overlay(data); err != nil {
			return nil, fmt.Errorf("parsing style file: %w", err)
		}
	}

	for name, s := range set.Styles {
		s.Name = name
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("style %q: %w", name, err)
		}
		set.Styles[name] = s
	}
	if _, ok := set.Styles[set.Default]; !ok {
		return nil, fmt.Errorf("default style %q: %w", set.Default, ErrUnknownStyle)
	}
	return set, nil
}

func (s *Set) overlay(data []byte) error {
	var raw struct {
		Default string               `yaml:"default"`
		Styles  map[string]yaml.Node `yaml:"styles"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Default != "" {
		s.Default = raw.Default
	}
	for name, node := range raw.Styles {
		// Start from the built-in preset so a file only needs the fields it changes.
		base := s.Styles[name]
		if err := node.Decode(&base); err != nil {
			return fmt.Errorf("style %q: %w", name, err)
		}
		s.Styles[name] = base
	}
	return nil
}

// Get returns the named style, or the default one when name is empty.
func (s *Set) Get(name string) (Style, error) {
	if name == "" {
		name = s.Default
	}
	st, ok := s.Styles[strings.ToLower(name)]
	if !ok {
		return Style{}, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
	}
	return st, nil
}

// Names returns the style names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.Styles))
	for name := range s.Styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the style following current in Names order, wrapping around.
func (s *Set) Next(current string) Style {
	names := s.Names()
	idx := 0
	for i, name := range names {
		if name == current {
			idx = (i + 1) % len(names)
			break
		}
	}
	return s.Styles[names[idx]]
}

// Validate reports the first constant that would break the simulation.
func (s Style) Validate() error {
	switch {
	case s.Layout != LayoutCenter && s.Layout != LayoutScatter:
		return fmt.Errorf("layout must be %q or %q, got %q", LayoutCenter, LayoutScatter, s.Layout)
	case s.Emitters < 1:
		return fmt.Errorf("emitters must be at least 1, got %d", s.Emitters)
	case s.MaxParticles < 0:
		return fmt.Errorf("max_particles must not be negative, got %d", s.MaxParticles)
	case s.SpawnCap < 0:
		return fmt.Errorf("spawn_cap must not be negative, got %d", s.SpawnCap)
	case s.SpawnDivisor <= 0:
		return fmt.Errorf("spawn_divisor must be positive, got %g", s.SpawnDivisor)
	case s.Drag <= 0 || s.Drag > 1:
		return fmt.Errorf("drag must be in (0,1], got %g", s.Drag)
	case s.SizeMin <= 0 || s.SizeMax < s.SizeMin:
		return fmt.Errorf("size range [%g,%g] is invalid", s.SizeMin, s.SizeMax)
	case s.RiseMin < 0 || s.RiseMax < s.RiseMin:
		return fmt.Errorf("rise range [%g,%g] is invalid", s.RiseMin, s.RiseMax)
	case s.DriftX < 0 || s.Spin < 0:
		return fmt.Errorf("drift_x and spin must not be negative")
	case s.Decay != DecayBoundary && s.Decay != DecayContinuous:
		return fmt.Errorf("decay must be %q or %q, got %q", DecayBoundary, DecayContinuous, s.Decay)
	case s.DecayRate <= 0:
		return fmt.Errorf("decay_rate must be positive, got %g", s.DecayRate)
	case s.Petals < 0:
		return fmt.Errorf("petals must not be negative, got %d", s.Petals)
	case s.PetalDivisor <= 0:
		return fmt.Errorf("petal_divisor must be positive, got %g", s.PetalDivisor)
	case s.SeedAspect <= 0:
		return fmt.Errorf("seed_aspect must be positive, got %g", s.SeedAspect)
	}
	if _, err := s.Palette(); err != nil {
		return err
	}
	return nil
}

// Palette parses the hex colors of the style.
func (s Style) Palette() (Palette, error) {
	var (
		p   Palette
		err error
	)
	if p.Seed, err = parseColor("seed", s.Colors.Seed); err != nil {
		return p, err
	}
	if p.Disk, err = parseColor("disk", s.Colors.Disk); err != nil {
		return p, err
	}
	if p.Stem, err = parseColor("stem", s.Colors.Stem); err != nil {
		return p, err
	}
	if p.Petal, err = parseColor("petal", s.Colors.Petal); err != nil {
		return p, err
	}
	return p, nil
}

func parseColor(field, hex string) (colorful.Color, error) {
	if hex == "" {
		return colorful.Color{R: 1, G: 1, B: 1}, nil
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("color %s: %w", field, err)
	}
	return c, nil
}
