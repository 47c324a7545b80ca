package engine

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/molsurf/pkg/molecule"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	for _, src := range []string{"", "   \n\t  \n  "} {
		mol, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if mol == nil {
			t.Fatal("expected non-nil molecule")
		}
		if len(mol.Atoms) != 0 {
			t.Errorf("expected no atoms, got %d", len(mol.Atoms))
		}
	}
}

func TestEvaluatePlainLisp(t *testing.T) {
	eng := NewEngine()

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	mol, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if len(mol.Atoms) != 0 {
		t.Errorf("expected no atoms, got %d", len(mol.Atoms))
	}
}

func TestEvaluateAtoms(t *testing.T) {
	eng := NewEngine()

	source := `
; water, heavy atom first
(atom "O" 0 0 0)
(atom "H" 0.96 0 0)
(atom :element "H" :at (vec3 -0.24 0.93 0))
(atom "N" (vec3 1 2 3.5))
`
	mol, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}

	want := []molecule.Atom{
		{Element: "O", Position: v3.Vec{}},
		{Element: "H", Position: v3.Vec{X: 0.96}},
		{Element: "H", Position: v3.Vec{X: -0.24, Y: 0.93}},
		{Element: "N", Position: v3.Vec{X: 1, Y: 2, Z: 3.5}},
	}
	if len(mol.Atoms) != len(want) {
		t.Fatalf("expected %d atoms, got %d: %+v", len(want), len(mol.Atoms), mol.Atoms)
	}
	for i := range want {
		if mol.Atoms[i] != want[i] {
			t.Errorf("atom %d = %+v, want %+v", i, mol.Atoms[i], want[i])
		}
	}
}

func TestEvaluateRadiusOverrides(t *testing.T) {
	eng := NewEngine()

	source := `
(default-radius 1.6)
(radius "Fe" 2.0)
(atom "Fe" 0 0 0)
`
	mol, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if mol.DefaultRadius != 1.6 {
		t.Errorf("DefaultRadius = %g, want 1.6", mol.DefaultRadius)
	}
	if mol.Radii["Fe"] != 2.0 {
		t.Errorf("Radii[Fe] = %g, want 2.0", mol.Radii["Fe"])
	}

	table := mol.RadiusTable(molecule.DefaultRadii())
	if got := table.Lookup("fe"); got != 2.0 {
		t.Errorf("Lookup(fe) = %g, want 2.0", got)
	}
	if got := table.Lookup("Zn"); got != 1.6 {
		t.Errorf("Lookup(Zn) = %g, want 1.6", got)
	}
	if got := table.Lookup("C"); got != 1.7 {
		t.Errorf("Lookup(C) = %g, want 1.7", got)
	}
}

func TestEvaluateBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"atom without element", `(atom)`},
		{"atom with number element", `(atom 6 0 0 0)`},
		{"atom with two coordinates", `(atom "C" 1 2)`},
		{"atom with string coordinate", `(atom "C" 1 "2" 3)`},
		{"atom with empty element", `(atom "" 0 0 0)`},
		{"atom with dangling keyword", `(atom "C" :at)`},
		{"vec3 arity", `(vec3 1 2)`},
		{"zero radius", `(radius "C" 0)`},
		{"negative default radius", `(default-radius -1)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewEngine()
			mol, evalErrs, err := eng.Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if mol != nil {
				t.Fatal("expected nil molecule on eval error")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected at least one eval error")
			}
		})
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	// Unmatched paren is a parse error.
	mol, evalErrs, err := eng.Evaluate("(atom \"C\" 0 0 0")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if mol != nil {
		t.Fatal("expected nil molecule on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	mol, evalErrs, err := eng.Evaluate("(atom \"C\" 0 0 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if mol != nil {
		t.Fatal("expected nil molecule on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateFreshSandboxPerCall(t *testing.T) {
	eng := NewEngine()

	for i := 0; i < 3; i++ {
		mol, evalErrs, err := eng.Evaluate(`(atom "S" 0 0 0)`)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if len(mol.Atoms) != 1 {
			t.Errorf("iteration %d: expected 1 atom, got %d", i, len(mol.Atoms))
		}
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if s2 := e2.Error(); strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// Exercise the timeout plumbing directly with a channel that never
	// sends; a script that spins forever would tie up a goroutine.
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult)

	done := make(chan struct{})
	var resultErr error
	go func() {
		defer close(done)
		_, _, resultErr = waitWithTimeout(ch, 1, &mu, &gen)
	}()

	select {
	case <-done:
		if resultErr == nil {
			t.Fatal("expected timeout error, got nil")
		}
		if !strings.Contains(resultErr.Error(), "timed out") {
			t.Errorf("expected timeout error message, got: %v", resultErr)
		}
	case <-time.After(EvalTimeout + 2*time.Second):
		t.Fatal("test itself timed out waiting for evaluation timeout")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	ch := make(chan evalResult, 1)
	ch <- evalResult{mol: &Molecule{}}

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
