// Package config reads molsurf's INI configuration. Unset variables keep
// their defaults, so an empty file is a valid configuration.
//
//	[surface]
//	cutoff = 30
//	resolution = 100
//	scale-factor = 0.8
//	isolevel-fraction = 0.1
//	heavy-atoms-only = true
//	extractor = march
//
//	[render]
//	smooth-iterations = 100
//	relaxation-factor = 0.1
//	decimate = 0.5
//
//	[radius "Fe"]
//	value = 2.0
package config

import (
	"fmt"
	"math"

	"github.com/chazu/molsurf/pkg/density"
	"github.com/chazu/molsurf/pkg/molecule"
	"gopkg.in/gcfg.v1"
)

// Extractor names accepted in [surface] extractor.
const (
	ExtractorMarch = "march"
	ExtractorSdfx  = "sdfx"
)

// SurfaceConfig holds the parameters of field construction and
// isosurface extraction.
type SurfaceConfig struct {
	Cutoff           float64
	Resolution       int
	ScaleFactor      float64 `gcfg:"scale-factor"`
	IsolevelFraction float64 `gcfg:"isolevel-fraction"`
	HeavyAtomsOnly   bool    `gcfg:"heavy-atoms-only"`

	// Optional
	Workers   int
	Support   float64
	Extractor string
	Cells     int
}

// RenderConfig holds post-processing parameters. molsurf never applies
// them; they are passed through to whatever renders the mesh.
type RenderConfig struct {
	SmoothIterations int     `gcfg:"smooth-iterations"`
	RelaxationFactor float64 `gcfg:"relaxation-factor"`
	Decimate         float64
}

// RadiusConfig overrides the radius of one element.
type RadiusConfig struct {
	Value float64
}

// DefaultRadiusConfig overrides the radius used for unlisted elements.
type DefaultRadiusConfig struct {
	Value float64
}

// Config is the whole file.
type Config struct {
	Surface       SurfaceConfig
	Render        RenderConfig
	Radius        map[string]*RadiusConfig
	DefaultRadius DefaultRadiusConfig `gcfg:"default-radius"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Surface: SurfaceConfig{
			Cutoff:           30.0,
			Resolution:       100,
			ScaleFactor:      molecule.DefaultScaleFactor,
			IsolevelFraction: 0.1,
			HeavyAtomsOnly:   true,
			Extractor:        ExtractorMarch,
		},
		Render: RenderConfig{
			SmoothIterations: 100,
			RelaxationFactor: 0.1,
			Decimate:         0.5,
		},
		DefaultRadius: DefaultRadiusConfig{Value: molecule.DefaultRadius},
	}
}

// Load reads fname over the defaults and validates the result.
func Load(fname string) (Config, error) {
	cfg := Default()
	if err := gcfg.ReadFileInto(&cfg, fname); err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", fname, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", fname, err)
	}
	return cfg, nil
}

// Parse reads INI text over the defaults and validates the result.
func Parse(text string) (Config, error) {
	cfg := Default()
	if err := gcfg.ReadStringInto(&cfg, text); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks every parameter. Range errors are returned as
// *density.InvalidParameterError.
func (c *Config) Validate() error {
	s := &c.Surface
	switch {
	case !positive(s.Cutoff):
		return bad("cutoff", s.Cutoff, "must be positive")
	case s.Resolution <= 0:
		return bad("resolution", float64(s.Resolution), "must be positive")
	case !positive(s.ScaleFactor):
		return bad("scale-factor", s.ScaleFactor, "must be positive")
	case !(s.IsolevelFraction > 0 && s.IsolevelFraction <= 1):
		return bad("isolevel-fraction", s.IsolevelFraction, "must be in (0, 1]")
	case s.Support < 0 || math.IsNaN(s.Support):
		return bad("support", s.Support, "must be zero or positive")
	case s.Workers < 0:
		return bad("workers", float64(s.Workers), "must be zero or positive")
	case s.Cells < 0:
		return bad("cells", float64(s.Cells), "must be zero or positive")
	}
	if s.Extractor == "" {
		s.Extractor = ExtractorMarch
	}
	if s.Extractor != ExtractorMarch && s.Extractor != ExtractorSdfx {
		return fmt.Errorf("unknown extractor %q, expected %s or %s", s.Extractor, ExtractorMarch, ExtractorSdfx)
	}

	r := c.Render
	switch {
	case r.SmoothIterations < 0:
		return bad("smooth-iterations", float64(r.SmoothIterations), "must be zero or positive")
	case r.RelaxationFactor < 0:
		return bad("relaxation-factor", r.RelaxationFactor, "must be zero or positive")
	case r.Decimate < 0 || r.Decimate >= 1:
		return bad("decimate", r.Decimate, "must be in [0, 1)")
	}

	if !positive(c.DefaultRadius.Value) {
		return bad("default-radius", c.DefaultRadius.Value, "must be positive")
	}
	for el, rc := range c.Radius {
		if rc == nil || !positive(rc.Value) {
			v := 0.0
			if rc != nil {
				v = rc.Value
			}
			return bad("radius "+el, v, "must be positive")
		}
	}
	return nil
}

// RadiusTable returns the built-in table with this file's overrides.
func (c *Config) RadiusTable() molecule.RadiusTable {
	t := molecule.DefaultRadii().WithFallback(c.DefaultRadius.Value)
	for el, rc := range c.Radius {
		if rc != nil {
			t = t.With(el, rc.Value)
		}
	}
	return t
}

// MoleculeOptions returns the atom filtering and scaling options.
func (c *Config) MoleculeOptions() molecule.Options {
	return molecule.Options{
		ScaleFactor:    c.Surface.ScaleFactor,
		HeavyAtomsOnly: c.Surface.HeavyAtomsOnly,
	}
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}

func bad(param string, value float64, reason string) error {
	return &density.InvalidParameterError{Param: param, Value: value, Reason: reason}
}
