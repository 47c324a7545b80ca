package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is an indexed triangle mesh handed to the rendering side.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
// Triangles that share an edge share vertex indices.
type Mesh struct {
	Vertices []float64 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float64 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // backend that produced the mesh
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i as a vector.
func (m *Mesh) Vertex(i int) v3.Vec {
	return v3.Vec{X: m.Vertices[3*i], Y: m.Vertices[3*i+1], Z: m.Vertices[3*i+2]}
}

// Bounds returns the axis-aligned bounding box of all vertices. An empty
// mesh reports a zero box.
func (m *Mesh) Bounds() (min, max v3.Vec) {
	if m.IsEmpty() {
		return v3.Vec{}, v3.Vec{}
	}
	min = v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i < m.VertexCount(); i++ {
		min, max = grow(min, max, m.Vertex(i))
	}
	return min, max
}

// Component is one connected piece of a mesh.
type Component struct {
	Triangles int
	Min, Max  v3.Vec
}

// Contains reports whether p lies inside the component's bounding box.
func (c Component) Contains(p v3.Vec) bool {
	return p.X >= c.Min.X && p.X <= c.Max.X &&
		p.Y >= c.Min.Y && p.Y <= c.Max.Y &&
		p.Z >= c.Min.Z && p.Z <= c.Max.Z
}

// Components groups triangles connected through shared vertices. Pieces
// are ordered by their first triangle.
func (m *Mesh) Components() []Component {
	parent := make([]int, m.VertexCount())
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := int(m.Indices[3*t]), int(m.Indices[3*t+1]), int(m.Indices[3*t+2])
		union(a, b)
		union(a, c)
	}

	slot := make(map[int]int)
	var comps []Component
	for t := 0; t < m.TriangleCount(); t++ {
		root := find(int(m.Indices[3*t]))
		s, ok := slot[root]
		if !ok {
			s = len(comps)
			slot[root] = s
			inf := math.Inf(1)
			comps = append(comps, Component{
				Min: v3.Vec{X: inf, Y: inf, Z: inf},
				Max: v3.Vec{X: -inf, Y: -inf, Z: -inf},
			})
		}
		c := &comps[s]
		c.Triangles++
		for j := 0; j < 3; j++ {
			c.Min, c.Max = grow(c.Min, c.Max, m.Vertex(int(m.Indices[3*t+j])))
		}
	}
	return comps
}

func grow(min, max, p v3.Vec) (v3.Vec, v3.Vec) {
	return v3.Vec{X: math.Min(min.X, p.X), Y: math.Min(min.Y, p.Y), Z: math.Min(min.Z, p.Z)},
		v3.Vec{X: math.Max(max.X, p.X), Y: math.Max(max.Y, p.Y), Z: math.Max(max.Z, p.Z)}
}

// ComputeNormals fills Normals with area-weighted vertex normals derived
// from the triangle winding. Vertices used by no triangle get a zero normal.
func (m *Mesh) ComputeNormals() {
	acc := make([]v3.Vec, m.VertexCount())
	for t := 0; t < m.TriangleCount(); t++ {
		ia, ib, ic := int(m.Indices[3*t]), int(m.Indices[3*t+1]), int(m.Indices[3*t+2])
		a, b, c := m.Vertex(ia), m.Vertex(ib), m.Vertex(ic)
		n := b.Sub(a).Cross(c.Sub(a))
		acc[ia] = acc[ia].Add(n)
		acc[ib] = acc[ib].Add(n)
		acc[ic] = acc[ic].Add(n)
	}
	m.Normals = make([]float64, 0, len(m.Vertices))
	for _, n := range acc {
		if l := n.Length(); l > 0 {
			n = n.MulScalar(1 / l)
		}
		m.Normals = append(m.Normals, n.X, n.Y, n.Z)
	}
}
