package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/molsurf/pkg/molecule"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// kwPrefix marks keywords rewritten by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource adapts script text to zygomys syntax outside string
// literals:
//
//   - :keyword becomes the string "__kw_keyword", so builtins can tell
//     keywords from positional strings without registering symbols.
//   - default-radius becomes default_radius; zygomys reads a hyphen
//     between letters as subtraction.
//   - ; and ;; line comments become // comments.
//
// A := assignment and numeric negation are left alone.
func preprocessSource(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)

	src := source
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '"' || c == '`':
			end := closingQuote(src, i)
			out.WriteString(src[i:end])
			i = end - 1

		case c == ';':
			j := i
			for j < len(src) && src[j] == ';' {
				j++
			}
			end := strings.IndexByte(src[j:], '\n')
			if end < 0 {
				end = len(src) - j
			}
			out.WriteString("//")
			out.WriteString(src[j : j+end])
			i = j + end - 1

		case c == ':' && i+1 < len(src) && isLetter(src[i+1]):
			j := i + 1
			for j < len(src) && (isIdent(src[j]) || src[j] == '-') {
				j++
			}
			out.WriteString(`"` + kwPrefix + src[i+1:j] + `"`)
			i = j - 1

		case c == '-' && i > 0 && i+1 < len(src) && isIdent(src[i-1]) && isLetter(src[i+1]):
			out.WriteByte('_')

		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// closingQuote returns the index just past the literal opened at start.
// Double-quoted literals honour backslash escapes; raw ones do not.
func closingQuote(src string, start int) int {
	q := src[start]
	for i := start + 1; i < len(src); i++ {
		switch {
		case q == '"' && src[i] == '\\':
			i++
		case src[i] == q:
			return i + 1
		}
	}
	return len(src)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// sexpVec3 carries a position between builtins.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpAtom is the value of an (atom ...) form.
type sexpAtom struct {
	atom molecule.Atom
}

func (a *sexpAtom) SexpString(ps *zygo.PrintState) string {
	p := a.atom.Position
	return fmt.Sprintf("(atom %q %g %g %g)", a.atom.Element, p.X, p.Y, p.Z)
}
func (a *sexpAtom) Type() *zygo.RegisteredType { return nil }

// args splits a builtin's arguments into keyword and positional values.
type args struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func splitArgs(in []zygo.Sexp) (args, error) {
	a := args{kw: map[string]zygo.Sexp{}}
	for i := 0; i < len(in); i++ {
		name, ok := keyword(in[i])
		if !ok {
			a.positional = append(a.positional, in[i])
			continue
		}
		if i+1 >= len(in) {
			return a, fmt.Errorf("keyword :%s has no value", name)
		}
		a.kw[name] = in[i+1]
		i++
	}
	return a, nil
}

func keyword(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// toFloat64 extracts a finite float64 from a SexpInt or SexpFloat.
func toFloat64(s zygo.Sexp) (float64, error) {
	var f float64
	switch v := s.(type) {
	case *zygo.SexpInt:
		f = float64(v.Val)
	case *zygo.SexpFloat:
		f = v.Val
	default:
		return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected finite number, got %g", f)
	}
	return f, nil
}

// toString extracts a plain string, rejecting keywords.
func toString(s zygo.Sexp) (string, error) {
	if _, ok := keyword(s); ok {
		return "", fmt.Errorf("expected string, got keyword")
	}
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toFloats(in []zygo.Sexp) ([]float64, error) {
	out := make([]float64, len(in))
	for i, s := range in {
		f, err := toFloat64(s)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// registerBuiltins installs the molecule builtins, which append to mol as
// the script runs. Source must go through preprocessSource first.
func registerBuiltins(env *zygo.Zlisp, mol *Molecule) {

	// (vec3 x y z)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, in []zygo.Sexp) (zygo.Sexp, error) {
		if len(in) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(in))
		}
		xyz, err := toFloats(in)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// (atom "C" x y z)
	// (atom "C" (vec3 x y z))
	// (atom :element "C" :at (vec3 x y z))
	env.AddFunction("atom", func(env *zygo.Zlisp, name string, in []zygo.Sexp) (zygo.Sexp, error) {
		a, err := splitArgs(in)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("atom: %w", err)
		}
		pos := a.positional

		var el zygo.Sexp
		if v, ok := a.kw["element"]; ok {
			el = v
		} else if len(pos) > 0 {
			el, pos = pos[0], pos[1:]
		} else {
			return zygo.SexpNull, fmt.Errorf("atom: missing element")
		}
		element, err := toString(el)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("atom: element: %w", err)
		}
		if strings.TrimSpace(element) == "" {
			return zygo.SexpNull, fmt.Errorf("atom: element must not be empty")
		}

		var at v3.Vec
		switch v, ok := a.kw["at"]; {
		case ok && len(pos) == 0:
			if at, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("atom: at: %w", err)
			}
		case !ok && len(pos) == 1:
			if at, err = toVec3(pos[0]); err != nil {
				return zygo.SexpNull, fmt.Errorf("atom: position: %w", err)
			}
		case !ok && len(pos) == 3:
			xyz, err := toFloats(pos)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("atom: position: %w", err)
			}
			at = v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		default:
			return zygo.SexpNull, fmt.Errorf("atom: expected a position as x y z, a vec3 or :at")
		}

		atom := molecule.Atom{Element: element, Position: at}
		mol.Atoms = append(mol.Atoms, atom)
		return &sexpAtom{atom: atom}, nil
	})

	// (radius "Fe" 2.0)
	env.AddFunction("radius", func(env *zygo.Zlisp, name string, in []zygo.Sexp) (zygo.Sexp, error) {
		if len(in) != 2 {
			return zygo.SexpNull, fmt.Errorf("radius requires an element and a value, got %d arguments", len(in))
		}
		element, err := toString(in[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("radius: element: %w", err)
		}
		r, err := toFloat64(in[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("radius: %w", err)
		}
		if r <= 0 {
			return zygo.SexpNull, fmt.Errorf("radius: %s must be positive, got %g", element, r)
		}
		mol.Radii[element] = r
		return &zygo.SexpFloat{Val: r}, nil
	})

	// (default-radius 1.5)
	env.AddFunction("default_radius", func(env *zygo.Zlisp, name string, in []zygo.Sexp) (zygo.Sexp, error) {
		if len(in) != 1 {
			return zygo.SexpNull, fmt.Errorf("default-radius requires exactly 1 argument, got %d", len(in))
		}
		r, err := toFloat64(in[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("default-radius: %w", err)
		}
		if r <= 0 {
			return zygo.SexpNull, fmt.Errorf("default-radius: must be positive, got %g", r)
		}
		mol.DefaultRadius = r
		return &zygo.SexpFloat{Val: r}, nil
	})
}
