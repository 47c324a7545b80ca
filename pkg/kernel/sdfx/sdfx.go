// Package sdfx implements kernel.Extractor using the
// github.com/deadsy/sdfx marching cubes renderer. The density field is
// exposed to sdfx as a signed distance function that is negative inside
// the isosurface.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/molsurf/pkg/density"
	"github.com/chazu/molsurf/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Extractor = (*SdfxExtractor)(nil)

// fieldSDF adapts a density field and level to sdf.SDF3. Evaluate returns
// level minus the interpolated density, so the zero set is the isosurface
// and the region above level is negative. Outside the grid the field reads
// as zero, which closes surfaces that touch the box.
type fieldSDF struct {
	f     *density.Field
	level float64
	bb    sdf.Box3
}

// Evaluate returns the pseudo-distance at p.
func (s *fieldSDF) Evaluate(p v3.Vec) float64 {
	return s.level - s.f.Sample(p)
}

// BoundingBox returns the sampled box.
func (s *fieldSDF) BoundingBox() sdf.Box3 {
	return s.bb
}

// weldTolerance is the vertex merge distance relative to the box size.
const weldTolerance = 1e-9

type weldKey [3]int64

// SdfxExtractor implements kernel.Extractor using sdfx.
type SdfxExtractor struct {
	cells int
}

// New returns an extractor that meshes with the given number of marching
// cubes cells along the longest axis. Zero or less uses the field's own
// resolution.
func New(cells int) *SdfxExtractor {
	return &SdfxExtractor{cells: cells}
}

// Name returns "sdfx".
func (e *SdfxExtractor) Name() string { return "sdfx" }

// Extract converts the field == level surface to a welded triangle mesh
// using marching cubes.
func (e *SdfxExtractor) Extract(f *density.Field, level float64) (*kernel.Mesh, error) {
	if f == nil {
		return nil, fmt.Errorf("sdfx: nil field")
	}
	if len(f.Values) != f.Grid.Len() {
		return nil, fmt.Errorf("sdfx: field has %d values for a %v grid", len(f.Values), f.Grid.Dims)
	}

	cells := e.cells
	if cells <= 0 {
		cells = f.Grid.Dims[0]
	}

	min, max := f.Grid.Bounds()
	s := &fieldSDF{f: f, level: level, bb: sdf.Box3{Min: min, Max: max}}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	// sdfx emits a triangle soup; weld corners that agree to within a
	// tiny fraction of the box so the mesh carries connectivity. Shared
	// cube edges can be interpolated in opposite directions, which leaves
	// the last bits of the two copies different.
	quantum := max.Sub(min).MaxComponent() * weldTolerance
	mesh := &kernel.Mesh{Name: e.Name()}
	index := make(map[weldKey]uint32, len(triangles))
	for _, tri := range triangles {
		var ids [3]uint32
		for j := 0; j < 3; j++ {
			v := tri[j]
			key := weldKey{
				int64(math.Round(v.X / quantum)),
				int64(math.Round(v.Y / quantum)),
				int64(math.Round(v.Z / quantum)),
			}
			id, ok := index[key]
			if !ok {
				id = uint32(mesh.VertexCount())
				index[key] = id
				mesh.Vertices = append(mesh.Vertices, v.X, v.Y, v.Z)
			}
			ids[j] = id
		}
		// Corners that collapse onto one vertex leave a sliver with no area.
		if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
			continue
		}
		mesh.Indices = append(mesh.Indices, ids[0], ids[1], ids[2])
	}

	mesh.ComputeNormals()
	return mesh, nil
}
