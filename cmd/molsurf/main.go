// Command molsurf computes the van der Waals surface of a molecule
// described by a script and writes the mesh as JSON.
//
//	molsurf -config surf.ini -script mol.lisp -out mesh.json [-field field.json]
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/chazu/molsurf/pkg/config"
	"github.com/chazu/molsurf/pkg/engine"
	"github.com/chazu/molsurf/pkg/kernel"
	"github.com/chazu/molsurf/pkg/surface"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

type options struct {
	config string
	script string
	out    string
	field  string
}

// output is the mesh document written to -out.
type output struct {
	Mesh      *kernel.Mesh        `json:"mesh"`
	Threshold float64             `json:"threshold"`
	Centroid  [3]float64          `json:"centroid"`
	AtomCount int                 `json:"atomCount"`
	Render    surface.RenderHints `json:"render"`
}

// fieldDoc is the diagnostic dump written to -field.
type fieldDoc struct {
	Dims    [3]int     `json:"dims"`
	Origin  [3]float64 `json:"origin"`
	Spacing [3]float64 `json:"spacing"`
	Values  []float64  `json:"values"`
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", "", "INI configuration file (defaults apply when empty)")
	flag.StringVar(&opts.script, "script", "", "molecule script")
	flag.StringVar(&opts.out, "out", "mesh.json", "mesh output file")
	flag.StringVar(&opts.field, "field", "", "optional density field output file")
	flag.Parse()

	if opts.script == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	cfg := config.Default()
	if opts.config != "" {
		var err error
		if cfg, err = config.Load(opts.config); err != nil {
			return err
		}
	}

	src, err := os.ReadFile(opts.script)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	mol, evalErrs, err := engine.NewEngine().Evaluate(string(src))
	if err != nil {
		return fmt.Errorf("%s: %w", opts.script, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = fmt.Errorf("%s: %w", opts.script, e)
		}
		return errors.Join(errs...)
	}

	res, err := surface.Generate(mol.Atoms, mol.RadiusTable(cfg.RadiusTable()), cfg)
	if err != nil {
		return err
	}

	doc := output{
		Mesh:      res.Mesh,
		Threshold: res.Threshold,
		Centroid:  triple(res.Centroid),
		AtomCount: res.AtomCount,
		Render:    res.Render,
	}
	if err := writeJSON(opts.out, doc); err != nil {
		return err
	}
	log.Printf("wrote %s (%d vertices, %d triangles)", opts.out, res.Mesh.VertexCount(), res.Mesh.TriangleCount())

	if opts.field == "" {
		return nil
	}
	g := res.Field.Grid
	fd := fieldDoc{
		Dims:    g.Dims,
		Origin:  triple(g.Origin),
		Spacing: triple(g.Spacing),
		Values:  res.Field.Values,
	}
	if err := writeJSON(opts.field, fd); err != nil {
		return err
	}
	log.Printf("wrote %s (%d samples)", opts.field, len(fd.Values))
	return nil
}

func triple(v v3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
