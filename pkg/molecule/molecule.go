// Package molecule turns atom records from a structure source into the
// radius-bearing samples the density builder consumes.
package molecule

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/molsurf/pkg/density"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Defaults used when no configuration overrides them.
const (
	DefaultRadius      = 1.5
	DefaultScaleFactor = 0.8
)

// Atom is a single record from the structure source.
type Atom struct {
	Element  string
	Position v3.Vec
}

// IsHydrogen reports whether the atom's element symbol is H.
func (a Atom) IsHydrogen() bool {
	return normalize(a.Element) == "H"
}

// Options controls how atoms become samples.
type Options struct {
	ScaleFactor    float64
	HeavyAtomsOnly bool
}

// DefaultOptions returns a 0.8 scale factor with hydrogens excluded.
func DefaultOptions() Options {
	return Options{ScaleFactor: DefaultScaleFactor, HeavyAtomsOnly: true}
}

// Samples filters, looks up and scales atom radii. Unknown elements fall
// back to the table's default radius. A non-positive scale factor or
// resulting radius is a *density.InvalidParameterError.
func Samples(atoms []Atom, table RadiusTable, opts Options) ([]density.Sample, error) {
	if !(opts.ScaleFactor > 0) || math.IsInf(opts.ScaleFactor, 0) {
		return nil, &density.InvalidParameterError{
			Param:  "scale_factor",
			Value:  opts.ScaleFactor,
			Reason: "must be positive",
		}
	}

	out := make([]density.Sample, 0, len(atoms))
	for i, a := range atoms {
		if opts.HeavyAtomsOnly && a.IsHydrogen() {
			continue
		}
		r := table.Lookup(a.Element) * opts.ScaleFactor
		if !(r > 0) || math.IsInf(r, 0) {
			return nil, &density.InvalidParameterError{
				Param:  "radius",
				Value:  r,
				Reason: fmt.Sprintf("atom %d (%s) must have a positive radius", i, a.Element),
			}
		}
		out = append(out, density.Sample{Position: a.Position, Radius: r})
	}
	return out, nil
}

// Center translates samples so their centroid sits at the origin. It
// returns new samples and the centroid that was subtracted.
func Center(samples []density.Sample) ([]density.Sample, v3.Vec) {
	if len(samples) == 0 {
		return nil, v3.Vec{}
	}
	var sum v3.Vec
	for _, s := range samples {
		sum = sum.Add(s.Position)
	}
	c := sum.MulScalar(1 / float64(len(samples)))

	out := make([]density.Sample, len(samples))
	for i, s := range samples {
		out[i] = density.Sample{Position: s.Position.Sub(c), Radius: s.Radius}
	}
	return out, c
}

func normalize(element string) string {
	return strings.ToUpper(strings.TrimSpace(element))
}
