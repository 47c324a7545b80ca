package molecule

import "sort"

// RadiusTable maps element symbols to van der Waals radii in angstroms.
// Keys are matched case-insensitively. The zero value resolves every
// element to zero, so use DefaultRadii or NewRadiusTable.
type RadiusTable struct {
	radii    map[string]float64
	fallback float64
}

// NewRadiusTable builds a table from radii, with fallback used for any
// element not listed.
func NewRadiusTable(radii map[string]float64, fallback float64) RadiusTable {
	t := RadiusTable{radii: make(map[string]float64, len(radii)), fallback: fallback}
	for el, r := range radii {
		t.radii[normalize(el)] = r
	}
	return t
}

// DefaultRadii returns the built-in table: C, N, O, S and H, with
// DefaultRadius for everything else.
func DefaultRadii() RadiusTable {
	return NewRadiusTable(map[string]float64{
		"C": 1.7,
		"N": 1.55,
		"O": 1.52,
		"S": 1.8,
		"H": 1.2,
	}, DefaultRadius)
}

// Lookup returns the radius for element.
func (t RadiusTable) Lookup(element string) float64 {
	if r, ok := t.radii[normalize(element)]; ok {
		return r
	}
	return t.fallback
}

// Has reports whether element has an explicit entry.
func (t RadiusTable) Has(element string) bool {
	_, ok := t.radii[normalize(element)]
	return ok
}

// Fallback returns the radius used for unlisted elements.
func (t RadiusTable) Fallback() float64 {
	return t.fallback
}

// With returns a copy of t with element set to r.
func (t RadiusTable) With(element string, r float64) RadiusTable {
	out := t.clone()
	out.radii[normalize(element)] = r
	return out
}

// WithFallback returns a copy of t using r for unlisted elements.
func (t RadiusTable) WithFallback(r float64) RadiusTable {
	out := t.clone()
	out.fallback = r
	return out
}

// Elements lists the explicit entries in sorted order.
func (t RadiusTable) Elements() []string {
	out := make([]string, 0, len(t.radii))
	for el := range t.radii {
		out = append(out, el)
	}
	sort.Strings(out)
	return out
}

func (t RadiusTable) clone() RadiusTable {
	out := RadiusTable{radii: make(map[string]float64, len(t.radii)+1), fallback: t.fallback}
	for el, r := range t.radii {
		out.radii[el] = r
	}
	return out
}
