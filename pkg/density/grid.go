// Package density builds scalar density fields from atom samples. A field
// is the superposition of one Gaussian bump per atom, sampled on a uniform
// cubic grid centred on the origin.
package density

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Grid describes an axis-aligned lattice of Dims[0]*Dims[1]*Dims[2] sample
// points. Values are laid out x-major: index (i, j, k) lives at
// (i*Dims[1]+j)*Dims[2]+k.
type Grid struct {
	Dims    [3]int
	Origin  v3.Vec
	Spacing v3.Vec

	// extent is the half-width of the box; sample coordinates run from
	// -extent to +extent inclusive on every axis.
	extent float64
}

// NewGrid returns the cubic grid covering [-cutoff, cutoff] on each axis
// with resolution samples per axis.
func NewGrid(cutoff float64, resolution int) (Grid, error) {
	if !(cutoff > 0) || math.IsInf(cutoff, 0) {
		return Grid{}, invalid("cutoff", cutoff, "must be a positive finite distance")
	}
	if resolution <= 0 {
		return Grid{}, invalid("resolution", float64(resolution), "must be positive")
	}
	s := 2 * cutoff / float64(resolution)
	return Grid{
		Dims:    [3]int{resolution, resolution, resolution},
		Origin:  v3.Vec{X: -cutoff, Y: -cutoff, Z: -cutoff},
		Spacing: v3.Vec{X: s, Y: s, Z: s},
		extent:  cutoff,
	}, nil
}

// Len returns the number of sample points.
func (g Grid) Len() int {
	return g.Dims[0] * g.Dims[1] * g.Dims[2]
}

// Index flattens (i, j, k) into the field's storage offset.
func (g Grid) Index(i, j, k int) int {
	return (i*g.Dims[1]+j)*g.Dims[2] + k
}

// Step returns the distance between neighbouring samples along axis.
// Samples include both box faces, so this is 2*cutoff/(n-1) rather than
// the nominal Spacing. A single-sample axis has step zero.
func (g Grid) Step(axis int) float64 {
	n := g.Dims[axis]
	if n < 2 {
		return 0
	}
	return 2 * g.extent / float64(n-1)
}

// Coord returns the world coordinate of sample i along axis.
func (g Grid) Coord(axis, i int) float64 {
	n := g.Dims[axis]
	if i == n-1 && n > 1 {
		return g.extent
	}
	return -g.extent + float64(i)*g.Step(axis)
}

// Coords returns every sample coordinate along axis, in index order.
func (g Grid) Coords(axis int) []float64 {
	out := make([]float64, g.Dims[axis])
	for i := range out {
		out[i] = g.Coord(axis, i)
	}
	return out
}

// Point returns the world position of sample (i, j, k).
func (g Grid) Point(i, j, k int) v3.Vec {
	return v3.Vec{X: g.Coord(0, i), Y: g.Coord(1, j), Z: g.Coord(2, k)}
}

// Bounds returns the corners of the sampled box.
func (g Grid) Bounds() (min, max v3.Vec) {
	e := g.extent
	return v3.Vec{X: -e, Y: -e, Z: -e}, v3.Vec{X: e, Y: e, Z: e}
}

// Cutoff returns the half-width of the box.
func (g Grid) Cutoff() float64 {
	return g.extent
}
