package density

import (
	"math"
	"runtime"
	"strconv"
	"sync"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Sample is one atom as seen by the builder: a centre and a kernel radius.
// Positions are expected in the grid frame, i.e. already centred.
type Sample struct {
	Position v3.Vec
	Radius   float64
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	workers int
	support float64
}

// WithWorkers sets how many goroutines share the accumulation. Values
// below one fall back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *buildOptions) { o.workers = n }
}

// WithSupport truncates each atom's kernel at k radii. Zero disables
// truncation. The Gaussian has decayed below exp(-9) at three radii.
func WithSupport(k float64) Option {
	return func(o *buildOptions) { o.support = k }
}

// Build samples the sum of exp(-(d/r)^2) over atoms on the cubic grid
// spanning [-cutoff, cutoff] with resolution points per axis.
//
// Each grid point sums its atom contributions in input order, so the
// result does not depend on the worker count. An empty atom list yields
// an all-zero field.
func Build(atoms []Sample, cutoff float64, resolution int, opts ...Option) (*Field, error) {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.support < 0 || math.IsNaN(o.support) {
		return nil, invalid("support", o.support, "must be zero or positive")
	}

	g, err := NewGrid(cutoff, resolution)
	if err != nil {
		return nil, err
	}
	for i, a := range atoms {
		if !(a.Radius > 0) || math.IsInf(a.Radius, 0) {
			return nil, &InvalidParameterError{
				Param:  "radius",
				Value:  a.Radius,
				Reason: "atom " + strconv.Itoa(i) + " must have a positive radius",
			}
		}
	}

	f := NewField(g)
	if len(atoms) == 0 {
		return f, nil
	}

	workers := o.workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	nx := g.Dims[0]
	if workers > nx {
		workers = nx
	}

	xs, ys, zs := g.Coords(0), g.Coords(1), g.Coords(2)

	// Workers pull x-slabs off a channel; each slab is a disjoint range of
	// f.Values so no locking is needed on the output.
	slabs := make(chan int, nx)
	for i := 0; i < nx; i++ {
		slabs <- i
	}
	close(slabs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			near := make([]Sample, 0, len(atoms))
			for i := range slabs {
				near = slabAtoms(near[:0], atoms, xs[i], o.support)
				fillSlab(f, i, xs[i], ys, zs, near, o.support)
			}
		}()
	}
	wg.Wait()

	return f, nil
}

// slabAtoms returns the atoms whose kernel reaches the plane x = x0.
// Without a support limit every atom is kept.
func slabAtoms(dst, atoms []Sample, x0, support float64) []Sample {
	if support == 0 {
		return append(dst, atoms...)
	}
	for _, a := range atoms {
		if math.Abs(x0-a.Position.X) <= support*a.Radius {
			dst = append(dst, a)
		}
	}
	return dst
}

func fillSlab(f *Field, i int, x float64, ys, zs []float64, atoms []Sample, support float64) {
	for j, y := range ys {
		base := f.Grid.Index(i, j, 0)
		for k, z := range zs {
			var sum float64
			for _, a := range atoms {
				dx := x - a.Position.X
				dy := y - a.Position.Y
				dz := z - a.Position.Z
				d := math.Sqrt(dx*dx + dy*dy + dz*dz)
				if support > 0 && d > support*a.Radius {
					continue
				}
				q := d / a.Radius
				sum += math.Exp(-q * q)
			}
			f.Values[base+k] = sum
		}
	}
}
