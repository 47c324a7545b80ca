package isosurface_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chazu/molsurf/pkg/density"
	"github.com/chazu/molsurf/pkg/isosurface"
	"github.com/chazu/molsurf/pkg/kernel"
	"github.com/chazu/molsurf/pkg/kernel/sdfx"
	"github.com/chazu/molsurf/pkg/molecule"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairField builds the centred field of two atoms on the x axis, the
// way the pipeline does: radius 1.7, scale factor 1.
func pairField(t *testing.T, separation, cutoff float64, resolution int) (*density.Field, []density.Sample) {
	t.Helper()
	atoms := []molecule.Atom{
		{Element: "C", Position: v3.Vec{}},
		{Element: "C", Position: v3.Vec{X: separation}},
	}
	samples, err := molecule.Samples(atoms, molecule.DefaultRadii(), molecule.Options{ScaleFactor: 1})
	require.NoError(t, err)
	centred, _ := molecule.Center(samples)

	f, err := density.Build(centred, cutoff, resolution)
	require.NoError(t, err)
	return f, centred
}

func TestThreshold(t *testing.T) {
	f, err := density.Build([]density.Sample{{Radius: 1}}, 3, 7)
	require.NoError(t, err)

	level, err := isosurface.Threshold(f, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 0.25*f.Max(), level)

	level, err = isosurface.Threshold(f, 1)
	require.NoError(t, err)
	assert.Equal(t, f.Max(), level)
}

func TestInvalidFraction(t *testing.T) {
	f, err := density.Build([]density.Sample{{Radius: 1}}, 3, 7)
	require.NoError(t, err)

	for _, frac := range []float64{0, -0.1, 1.0001, 2} {
		_, err := isosurface.Extract(f, frac)
		var pe *density.InvalidParameterError
		require.True(t, errors.As(err, &pe), "fraction %g: got %v", frac, err)
		assert.Equal(t, "isolevel_fraction", pe.Param)
	}
}

func TestEmptyAtomsIsEmptyFieldError(t *testing.T) {
	f, err := density.Build(nil, 10, 20)
	require.NoError(t, err)

	mesh, err := isosurface.Extract(f, 0.1)
	assert.Nil(t, mesh)
	assert.True(t, errors.Is(err, density.ErrEmptyField), "got %v", err)

	var fe *density.EmptyFieldError
	assert.True(t, errors.As(err, &fe))
}

func TestNilFieldIsEmptyFieldError(t *testing.T) {
	_, err := isosurface.Extract(nil, 0.1)
	assert.True(t, errors.Is(err, density.ErrEmptyField), "got %v", err)
}

func TestThresholdScalingInvariance(t *testing.T) {
	f, _ := pairField(t, 3, 6, 24)

	a, err := isosurface.Extract(f, 0.1)
	require.NoError(t, err)
	b, err := isosurface.Extract(f.Scaled(2), 0.1)
	require.NoError(t, err)

	require.False(t, a.IsEmpty())
	assert.True(t, reflect.DeepEqual(a, b), "doubling the field changed the mesh")
}

func TestDeterministic(t *testing.T) {
	f, _ := pairField(t, 2.2, 5, 20)
	a, err := isosurface.Extract(f, 0.3)
	require.NoError(t, err)
	b, err := isosurface.Extract(f, 0.3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestOverlappingAtomsMerge(t *testing.T) {
	f, atoms := pairField(t, 3, 10, 40)

	mesh, err := isosurface.Extract(f, 0.1)
	require.NoError(t, err)
	require.False(t, mesh.IsEmpty())

	comps := mesh.Components()
	require.Len(t, comps, 1, "the two lobes should merge into one surface")
	for _, a := range atoms {
		assert.True(t, comps[0].Contains(a.Position), "surface should enclose %v", a.Position)
	}
}

func TestSeparatedAtomsSplit(t *testing.T) {
	// Centred at +/-15, both atoms sit outside the [-10, 10] box; only the
	// caps of their kernels reach the faces, one per side.
	f, _ := pairField(t, 30, 10, 40)

	mesh, err := isosurface.Extract(f, 0.1)
	require.NoError(t, err)

	comps := mesh.Components()
	require.Len(t, comps, 2)
	var left, right int
	for _, c := range comps {
		switch {
		case c.Max.X < 0:
			left++
		case c.Min.X > 0:
			right++
		}
	}
	assert.Equal(t, 1, left, "one component on the -x side")
	assert.Equal(t, 1, right, "one component on the +x side")
}

func TestSeparatedAtomsSplitInsideBox(t *testing.T) {
	f, atoms := pairField(t, 30, 20, 40)

	mesh, err := isosurface.Extract(f, 0.1)
	require.NoError(t, err)

	comps := mesh.Components()
	require.Len(t, comps, 2)
	for _, a := range atoms {
		var holders int
		for _, c := range comps {
			if c.Contains(a.Position) {
				holders++
			}
		}
		assert.Equal(t, 1, holders, "atom at %v should be enclosed by exactly one component", a.Position)
	}
}

// recordingExtractor captures the level it was asked to mesh.
type recordingExtractor struct {
	level float64
	err   error
}

func (r *recordingExtractor) Name() string { return "recording" }

func (r *recordingExtractor) Extract(_ *density.Field, level float64) (*kernel.Mesh, error) {
	r.level = level
	if r.err != nil {
		return nil, r.err
	}
	return &kernel.Mesh{Name: r.Name()}, nil
}

func TestWithExtractor(t *testing.T) {
	f, err := density.Build([]density.Sample{{Radius: 1}}, 3, 7)
	require.NoError(t, err)

	rec := &recordingExtractor{}
	mesh, err := isosurface.Extract(f, 0.5, isosurface.WithExtractor(rec))
	require.NoError(t, err)
	assert.Equal(t, "recording", mesh.Name)
	assert.Equal(t, 0.5*f.Max(), rec.level)
}

func TestExtractorErrorIsWrapped(t *testing.T) {
	f, err := density.Build([]density.Sample{{Radius: 1}}, 3, 7)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = isosurface.Extract(f, 0.5, isosurface.WithExtractor(&recordingExtractor{err: boom}))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "recording")
}

func TestSdfxBackendMerges(t *testing.T) {
	f, atoms := pairField(t, 3, 10, 40)

	mesh, err := isosurface.Extract(f, 0.1, isosurface.WithExtractor(sdfx.New(0)))
	require.NoError(t, err)
	require.False(t, mesh.IsEmpty())

	min, max := mesh.Bounds()
	box := kernel.Component{Min: min, Max: max}
	for _, a := range atoms {
		assert.True(t, box.Contains(a.Position))
	}
}
