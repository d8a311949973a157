// Package oracletest provides an in-memory Oracle for tests.
package oracletest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gnolang/bowtie/internal/oracle"
	"github.com/gnolang/bowtie/internal/smt"
)

// State assigns a truth value to every atom, keyed by its rendering.
// An atom is any term whose head is not a boolean connective.
type State map[string]bool

// Table is an Oracle over an explicit finite universe. A formula is valid
// when it holds in every state; counterexamples are the first falsifying
// state in order.
type Table struct {
	States []State
	// Simplified maps a formula rendering to the reply Simplify returns.
	Simplified map[string]smt.Expr
	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls int
}

var _ oracle.Oracle = (*Table)(nil)

// Calls reports how many oracle queries were answered, counting every
// formula of a batch.
func (t *Table) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *Table) count(n int) {
	t.mu.Lock()
	t.calls += n
	t.mu.Unlock()
}

func (t *Table) CheckValid(ctx context.Context, formula smt.Expr, want []smt.Expr) (oracle.Outcome, error) {
	if t.Err != nil {
		return oracle.Outcome{}, t.Err
	}
	t.count(1)
	for _, s := range t.States {
		ok, err := Eval(formula, s)
		if err != nil {
			return oracle.Outcome{}, err
		}
		if ok {
			continue
		}
		out := oracle.Outcome{}
		if len(want) > 0 {
			out.Model = make(map[string]bool, len(want))
			for _, w := range want {
				v, err := Eval(w, s)
				if err != nil {
					return oracle.Outcome{}, err
				}
				out.Model[w.String()] = v
			}
		}
		return out, nil
	}
	return oracle.Outcome{Valid: true}, nil
}

func (t *Table) CheckBatch(ctx context.Context, formulas []smt.Expr) ([]oracle.Outcome, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	t.count(len(formulas))
	out := make([]oracle.Outcome, len(formulas))
	for i, f := range formulas {
		out[i].Valid = true
		for _, s := range t.States {
			ok, err := Eval(f, s)
			if err != nil {
				return nil, err
			}
			if !ok {
				out[i].Valid = false
				break
			}
		}
	}
	return out, nil
}

func (t *Table) Simplify(ctx context.Context, formula smt.Expr) (smt.Expr, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	if e, ok := t.Simplified[formula.String()]; ok {
		return e, nil
	}
	return formula, nil
}

// Eval evaluates a boolean term in s. Connectives are interpreted;
// every other term must be assigned by s.
func Eval(e smt.Expr, s State) (bool, error) {
	switch smt.Head(e) {
	case "and":
		for _, a := range smt.Args(e) {
			v, err := Eval(a, s)
			if err != nil || !v {
				return false, err
			}
		}
		return true, nil
	case "or":
		for _, a := range smt.Args(e) {
			v, err := Eval(a, s)
			if err != nil || v {
				return v, err
			}
		}
		return false, nil
	case "not":
		args := smt.Args(e)
		if len(args) != 1 {
			return false, fmt.Errorf("not: want 1 argument, got %d", len(args))
		}
		v, err := Eval(args[0], s)
		return !v, err
	case "=>":
		args := smt.Args(e)
		if len(args) != 2 {
			return false, fmt.Errorf("=>: want 2 arguments, got %d", len(args))
		}
		lhs, err := Eval(args[0], s)
		if err != nil || !lhs {
			return true, err
		}
		return Eval(args[1], s)
	case "=":
		// An assigned equation is an atom; otherwise both sides are
		// boolean terms.
		if v, ok := s[e.String()]; ok {
			return v, nil
		}
		args := smt.Args(e)
		if len(args) != 2 {
			return false, fmt.Errorf("=: want 2 arguments, got %d", len(args))
		}
		lhs, err := Eval(args[0], s)
		if err != nil {
			return false, err
		}
		rhs, err := Eval(args[1], s)
		return lhs == rhs, err
	}

	switch e.String() {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	v, ok := s[e.String()]
	if !ok {
		return false, fmt.Errorf("atom %s is not assigned", e)
	}
	return v, nil
}

// Enumerate returns every assignment of atoms. The first atom varies
// slowest, so for (p, q) the order is FF, FT, TF, TT.
func Enumerate(atoms ...string) []State {
	n := len(atoms)
	out := make([]State, 0, 1<<n)
	for i := 0; i < 1<<n; i++ {
		s := make(State, n)
		for j, a := range atoms {
			s[a] = i&(1<<(n-1-j)) != 0
		}
		out = append(out, s)
	}
	return out
}

// Define sets atom name to f(s) in every state.
func Define(states []State, name string, f func(State) bool) []State {
	for _, s := range states {
		s[name] = f(s)
	}
	return states
}

// Keep returns the states satisfying f.
func Keep(states []State, f func(State) bool) []State {
	var out []State
	for _, s := range states {
		if f(s) {
			out = append(out, s)
		}
	}
	return out
}

// String renders a state with atoms in sorted order, for test failures.
func (s State) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := "{"
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%t", k, s[k])
	}
	return out + "}"
}
