// Package march extracts isosurfaces directly on a density field's own
// sampling grid using marching tetrahedra. Every grid cell is split into
// six tetrahedra around its main diagonal, which tiles neighbouring cells
// consistently, so the output is crack-free and free of the ambiguous
// cases of table-driven marching cubes.
package march

import (
	"fmt"

	"github.com/chazu/molsurf/pkg/density"
	"github.com/chazu/molsurf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Extractor = (*Extractor)(nil)

// Extractor implements kernel.Extractor on the field's native grid.
type Extractor struct{}

// New returns a marching-tetrahedra extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns "march".
func (e *Extractor) Name() string { return "march" }

// cellTets lists the six tetrahedra of a unit cell as corner numbers.
// Corner c sits at offset (c&1, c>>1&1, c>>2&1). Each tetrahedron walks
// from corner 0 to corner 7 along one permutation of the axes.
var cellTets = [6][4]int{
	{0, 1, 3, 7},
	{0, 1, 5, 7},
	{0, 2, 3, 7},
	{0, 2, 6, 7},
	{0, 4, 5, 7},
	{0, 4, 6, 7},
}

// edgeKey names a grid edge by the flat indices of its endpoints, lo < hi.
type edgeKey struct{ lo, hi int }

// builder accumulates a welded mesh.
type builder struct {
	f     *density.Field
	level float64
	xs    []float64
	ys    []float64
	zs    []float64
	verts map[edgeKey]uint32
	mesh  *kernel.Mesh
}

// Extract triangulates the surface field == level. Grid points with a
// value above level are inside.
func (e *Extractor) Extract(f *density.Field, level float64) (*kernel.Mesh, error) {
	if f == nil {
		return nil, fmt.Errorf("march: nil field")
	}
	if len(f.Values) != f.Grid.Len() {
		return nil, fmt.Errorf("march: field has %d values for a %v grid", len(f.Values), f.Grid.Dims)
	}

	b := &builder{
		f:     f,
		level: level,
		xs:    f.Grid.Coords(0),
		ys:    f.Grid.Coords(1),
		zs:    f.Grid.Coords(2),
		verts: make(map[edgeKey]uint32),
		mesh:  &kernel.Mesh{Name: e.Name()},
	}

	nx, ny, nz := f.Grid.Dims[0], f.Grid.Dims[1], f.Grid.Dims[2]
	var corners [8]int
	for i := 0; i < nx-1; i++ {
		for j := 0; j < ny-1; j++ {
			for k := 0; k < nz-1; k++ {
				for c := 0; c < 8; c++ {
					corners[c] = f.Grid.Index(i+(c&1), j+(c>>1&1), k+(c>>2&1))
				}
				for _, tet := range cellTets {
					b.tetra([4]int{corners[tet[0]], corners[tet[1]], corners[tet[2]], corners[tet[3]]})
				}
			}
		}
	}

	b.mesh.ComputeNormals()
	return b.mesh, nil
}

// tetra emits the surface patch crossing one tetrahedron, given the flat
// grid indices of its corners.
func (b *builder) tetra(g [4]int) {
	var inBuf, outBuf [4]int
	in, out := inBuf[:0], outBuf[:0]
	for _, idx := range g {
		if b.f.Values[idx] > b.level {
			in = append(in, idx)
		} else {
			out = append(out, idx)
		}
	}

	switch len(in) {
	case 0, 4:
		return
	case 1:
		b.triangle(in, out, b.vertex(in[0], out[0]), b.vertex(in[0], out[1]), b.vertex(in[0], out[2]))
	case 3:
		b.triangle(in, out, b.vertex(in[0], out[0]), b.vertex(in[1], out[0]), b.vertex(in[2], out[0]))
	case 2:
		// The four crossing edges form a cycle; split it into two triangles.
		q0 := b.vertex(in[0], out[0])
		q1 := b.vertex(in[0], out[1])
		q2 := b.vertex(in[1], out[1])
		q3 := b.vertex(in[1], out[0])
		b.triangle(in, out, q0, q1, q2)
		b.triangle(in, out, q0, q2, q3)
	}
}

// triangle appends (a, b, c) wound so its normal points from the inside
// corners toward the outside corners, i.e. down the density gradient.
func (b *builder) triangle(in, out []int, ia, ib, ic uint32) {
	m := b.mesh
	pa, pb, pc := m.Vertex(int(ia)), m.Vertex(int(ib)), m.Vertex(int(ic))
	n := pb.Sub(pa).Cross(pc.Sub(pa))
	if n.Dot(b.centroid(out).Sub(b.centroid(in))) < 0 {
		ib, ic = ic, ib
	}
	m.Indices = append(m.Indices, ia, ib, ic)
}

// vertex returns the index of the crossing point on the edge between
// grid points p and q, creating it on first use.
func (b *builder) vertex(p, q int) uint32 {
	key := edgeKey{p, q}
	if q < p {
		key = edgeKey{q, p}
	}
	if v, ok := b.verts[key]; ok {
		return v
	}

	// Interpolate from the lower index so the position does not depend on
	// which tetrahedron reached the edge first.
	lo, hi := b.point(key.lo), b.point(key.hi)
	vlo, vhi := b.f.Values[key.lo], b.f.Values[key.hi]
	t := (b.level - vlo) / (vhi - vlo)
	pos := lo.Add(hi.Sub(lo).MulScalar(t))

	v := uint32(b.mesh.VertexCount())
	b.mesh.Vertices = append(b.mesh.Vertices, pos.X, pos.Y, pos.Z)
	b.verts[key] = v
	return v
}

// point returns the world position of a flat grid index.
func (b *builder) point(idx int) v3.Vec {
	d := b.f.Grid.Dims
	k := idx % d[2]
	j := (idx / d[2]) % d[1]
	i := idx / (d[1] * d[2])
	return v3.Vec{X: b.xs[i], Y: b.ys[j], Z: b.zs[k]}
}

func (b *builder) centroid(idx []int) v3.Vec {
	var sum v3.Vec
	for _, g := range idx {
		sum = sum.Add(b.point(g))
	}
	return sum.MulScalar(1 / float64(len(idx)))
}
