// Package kernel defines the isosurface extraction interface and the mesh
// type every backend produces. Implementations (march, sdfx) turn a
// density field and an absolute isolevel into a triangle mesh; the
// abstraction lets the thresholding policy swap backends freely.
package kernel

import "github.com/chazu/molsurf/pkg/density"

// Extractor produces the level set field == level as a triangle mesh.
// Points where the field exceeds level are inside the surface.
// Implementations must be deterministic and must not mutate the field.
type Extractor interface {
	// Name identifies the backend in logs and mesh metadata.
	Name() string

	Extract(f *density.Field, level float64) (*Mesh, error)
}
