// Package engine evaluates molecule scripts. A script is a small Lisp
// program, run by zygomys in a sandbox, whose builtins declare atoms and
// radius overrides:
//
//	(default-radius 1.6)
//	(radius "Fe" 2.0)
//	(atom "C" 0 0 0)
//	(atom :element "O" :at (vec3 1.23 0 0))
//
// Structure files are parsed elsewhere; scripts are the module's own way
// to describe small inputs and fixtures.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/molsurf/pkg/molecule"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in the script.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Molecule is what a script declares. Radii holds per-element overrides
// keyed as written; DefaultRadius is zero unless the script set it.
type Molecule struct {
	Atoms         []molecule.Atom
	Radii         map[string]float64
	DefaultRadius float64
}

// RadiusTable applies the script's overrides on top of base.
func (m *Molecule) RadiusTable(base molecule.RadiusTable) molecule.RadiusTable {
	t := base
	if m.DefaultRadius > 0 {
		t = t.WithFallback(m.DefaultRadius)
	}
	for el, r := range m.Radii {
		t = t.With(el, r)
	}
	return t
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandboxed environment.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs a molecule script.
//
// Return semantics:
//   - On success: returns molecule + nil errors + nil error
//   - On parse/eval failure: returns nil molecule + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Molecule, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		mol, evalErrs, err := e.evaluate(source)
		ch <- evalResult{mol: mol, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Molecule, []EvalError, error) {
	mol := &Molecule{Radii: map[string]float64{}}
	if strings.TrimSpace(source) == "" {
		return mol, nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, mol)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return mol, nil, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, pulling out
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := strings.TrimSpace(err.Error())
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []EvalError{{Message: msg}}
}
