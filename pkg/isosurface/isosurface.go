// Package isosurface turns a density field into a triangle mesh by
// thresholding at a fraction of the field's own maximum and handing the
// resulting absolute level to an extraction kernel.
package isosurface

import (
	"fmt"
	"math"

	"github.com/chazu/molsurf/pkg/density"
	"github.com/chazu/molsurf/pkg/kernel"
	"github.com/chazu/molsurf/pkg/kernel/march"
)

// DefaultFraction is the isolevel fraction used when none is configured.
const DefaultFraction = 0.1

// Option configures Extract.
type Option func(*options)

type options struct {
	extractor kernel.Extractor
}

// WithExtractor selects the meshing backend. The default is march.New().
func WithExtractor(e kernel.Extractor) Option {
	return func(o *options) { o.extractor = e }
}

// Threshold returns fraction * max(field). Because the level is relative
// to the observed maximum, scaling the whole field leaves the surface
// unchanged.
func Threshold(f *density.Field, fraction float64) (float64, error) {
	if !(fraction > 0 && fraction <= 1) {
		return 0, &density.InvalidParameterError{
			Param:  "isolevel_fraction",
			Value:  fraction,
			Reason: "must be in (0, 1]",
		}
	}
	if f == nil || len(f.Values) == 0 {
		return 0, &density.EmptyFieldError{Reason: "no samples"}
	}
	m := f.Max()
	if !(m > 0) || math.IsInf(m, 0) {
		return 0, &density.EmptyFieldError{Reason: fmt.Sprintf("field maximum is %g", m)}
	}
	return fraction * m, nil
}

// Extract meshes the surface at fraction of the field maximum. It never
// smooths or decimates; post-processing belongs to the renderer.
//
// Return semantics:
//   - On success: returns the mesh, which may still be empty if the level
//     set misses every grid cell.
//   - On bad fraction: *density.InvalidParameterError.
//   - On an all-zero or empty field: *density.EmptyFieldError.
func Extract(f *density.Field, fraction float64, opts ...Option) (*kernel.Mesh, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.extractor == nil {
		o.extractor = march.New()
	}

	level, err := Threshold(f, fraction)
	if err != nil {
		return nil, err
	}

	mesh, err := o.extractor.Extract(f, level)
	if err != nil {
		return nil, fmt.Errorf("isosurface: %s extraction at level %g failed: %w", o.extractor.Name(), level, err)
	}
	return mesh, nil
}
