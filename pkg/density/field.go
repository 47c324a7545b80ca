package density

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Field is a scalar density sampled on a Grid. It is written once by Build
// and treated as read-only afterwards; the helpers below return new fields.
type Field struct {
	Grid   Grid
	Values []float64
}

// NewField returns a zero field over g.
func NewField(g Grid) *Field {
	return &Field{Grid: g, Values: make([]float64, g.Len())}
}

// At returns the value at sample (i, j, k).
func (f *Field) At(i, j, k int) float64 {
	return f.Values[f.Grid.Index(i, j, k)]
}

// Max returns the largest value in the field, or 0 for an empty field.
func (f *Field) Max() float64 {
	if f == nil || len(f.Values) == 0 {
		return 0
	}
	m := f.Values[0]
	for _, v := range f.Values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Scaled returns a copy of f with every value multiplied by s.
func (f *Field) Scaled(s float64) *Field {
	out := &Field{Grid: f.Grid, Values: make([]float64, len(f.Values))}
	for i, v := range f.Values {
		out.Values[i] = v * s
	}
	return out
}

// Add returns the point-wise sum of f and o. Both fields must share a grid.
func (f *Field) Add(o *Field) (*Field, error) {
	if f.Grid.Dims != o.Grid.Dims || f.Grid.Cutoff() != o.Grid.Cutoff() {
		return nil, fmt.Errorf("density: cannot add fields on grids %v and %v", f.Grid.Dims, o.Grid.Dims)
	}
	out := &Field{Grid: f.Grid, Values: make([]float64, len(f.Values))}
	for i := range f.Values {
		out.Values[i] = f.Values[i] + o.Values[i]
	}
	return out, nil
}

// Sample trilinearly interpolates the field at world position p. Points
// outside the sampled box read as zero.
func (f *Field) Sample(p v3.Vec) float64 {
	var (
		idx  [3]int
		frac [3]float64
	)
	pos := [3]float64{p.X, p.Y, p.Z}
	for axis := 0; axis < 3; axis++ {
		n := f.Grid.Dims[axis]
		step := f.Grid.Step(axis)
		if step == 0 {
			if pos[axis] != f.Grid.Coord(axis, 0) {
				return 0
			}
			continue
		}
		u := (pos[axis] - f.Grid.Coord(axis, 0)) / step
		if u < 0 || u > float64(n-1) || math.IsNaN(u) {
			return 0
		}
		i := int(u)
		if i >= n-1 {
			i = n - 2
		}
		idx[axis] = i
		frac[axis] = u - float64(i)
	}

	var sum float64
	for c := 0; c < 8; c++ {
		w := 1.0
		var at [3]int
		for axis := 0; axis < 3; axis++ {
			bit := (c >> axis) & 1
			at[axis] = idx[axis] + bit
			if f.Grid.Dims[axis] == 1 {
				if bit == 1 {
					w = 0
				}
				at[axis] = 0
				continue
			}
			if bit == 1 {
				w *= frac[axis]
			} else {
				w *= 1 - frac[axis]
			}
		}
		if w == 0 {
			continue
		}
		sum += w * f.At(at[0], at[1], at[2])
	}
	return sum
}
