// Package surface runs the whole molecular surface pipeline: atom records
// in, welded isosurface mesh out. It owns the steps the density builder
// deliberately leaves to its caller, namely hydrogen filtering, radius
// lookup and centering.
package surface

import (
	"fmt"
	"log"
	"time"

	"github.com/chazu/molsurf/pkg/config"
	"github.com/chazu/molsurf/pkg/density"
	"github.com/chazu/molsurf/pkg/isosurface"
	"github.com/chazu/molsurf/pkg/kernel"
	"github.com/chazu/molsurf/pkg/kernel/march"
	"github.com/chazu/molsurf/pkg/kernel/sdfx"
	"github.com/chazu/molsurf/pkg/molecule"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// RenderHints are the post-processing parameters for the renderer that
// consumes the mesh. They are carried, never applied.
type RenderHints struct {
	SmoothIterations int     `json:"smoothIterations"`
	RelaxationFactor float64 `json:"relaxationFactor"`
	Decimate         float64 `json:"decimate"`
}

// Result bundles the mesh with the intermediate products a caller may
// want for diagnostics. Centroid is the offset subtracted from every atom;
// add it back to mesh vertices to recover the input frame.
type Result struct {
	Mesh      *kernel.Mesh
	Field     *density.Field
	Threshold float64
	Centroid  v3.Vec
	AtomCount int
	Render    RenderHints
}

// Generate builds the surface of atoms under cfg, using table for radii.
// It returns *density.InvalidParameterError for bad parameters and
// *density.EmptyFieldError when no atom survives filtering.
func Generate(atoms []molecule.Atom, table molecule.RadiusTable, cfg config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("surface: %w", err)
	}
	s := cfg.Surface
	start := time.Now()

	samples, err := molecule.Samples(atoms, table, cfg.MoleculeOptions())
	if err != nil {
		return nil, fmt.Errorf("surface: %w", err)
	}
	centred, centroid := molecule.Center(samples)

	field, err := density.Build(centred, s.Cutoff, s.Resolution,
		density.WithWorkers(s.Workers),
		density.WithSupport(s.Support),
	)
	if err != nil {
		return nil, fmt.Errorf("surface: building field: %w", err)
	}

	level, err := isosurface.Threshold(field, s.IsolevelFraction)
	if err != nil {
		return nil, fmt.Errorf("surface: %d of %d atoms kept: %w", len(samples), len(atoms), err)
	}
	mesh, err := isosurface.Extract(field, s.IsolevelFraction, isosurface.WithExtractor(Extractor(cfg)))
	if err != nil {
		return nil, fmt.Errorf("surface: %w", err)
	}

	log.Printf("surface: %d atoms (%d kept), %d^3 grid, level %.4g, %s mesh with %d triangles in %s",
		len(atoms), len(samples), s.Resolution, level, mesh.Name, mesh.TriangleCount(),
		time.Since(start).Round(time.Millisecond))

	return &Result{
		Mesh:      mesh,
		Field:     field,
		Threshold: level,
		Centroid:  centroid,
		AtomCount: len(samples),
		Render: RenderHints{
			SmoothIterations: cfg.Render.SmoothIterations,
			RelaxationFactor: cfg.Render.RelaxationFactor,
			Decimate:         cfg.Render.Decimate,
		},
	}, nil
}

// Extractor returns the meshing backend named by cfg.
func Extractor(cfg config.Config) kernel.Extractor {
	if cfg.Surface.Extractor == config.ExtractorSdfx {
		return sdfx.New(cfg.Surface.Cells)
	}
	return march.New()
}
