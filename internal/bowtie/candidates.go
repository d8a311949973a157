package bowtie

import (
	"fmt"

	"github.com/gnolang/bowtie/internal/smt"
	"github.com/gnolang/bowtie/internal/spec"
)

type term struct {
	expr smt.Expr
	sort string
}

// Candidates returns the predicate pool for the obligation's operations:
// the model's seed predicates, then atoms over the start state and the
// argument variables. The order is fixed and duplicates are dropped.
func Candidates(model *spec.Model, o *Obligation) ([]smt.Expr, error) {
	var out []smt.Expr
	seen := make(map[string]bool)
	add := func(e smt.Expr) {
		if key := e.String(); !seen[key] {
			seen[key] = true
			out = append(out, e)
		}
	}

	for _, p := range model.Predicates {
		e, err := smt.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("seed predicate %q: %w", p, err)
		}
		add(e)
	}

	var terms []term
	for _, f := range model.Fields() {
		terms = append(terms, term{smt.Symbol(f.Name), f.Type})
	}
	for i, e := range o.FirstArgs() {
		terms = append(terms, term{e, o.First.Args[i]})
	}
	for i, e := range o.SecondArgs() {
		terms = append(terms, term{e, o.Second.Args[i]})
	}

	zero := smt.Symbol("0")
	for _, t := range terms {
		switch t.sort {
		case "Bool":
			add(t.expr)
		case "Int":
			add(smt.Eq(t.expr, zero))
			add(smt.App(">", t.expr, zero))
		}
	}
	for i, a := range terms {
		for _, b := range terms[i+1:] {
			if a.sort != b.sort {
				continue
			}
			add(smt.Eq(a.expr, b.expr))
			if a.sort == "Int" {
				add(smt.App("<", a.expr, b.expr))
			}
		}
	}
	return out, nil
}
