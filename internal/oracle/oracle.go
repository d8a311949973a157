// Package oracle answers validity questions about formulas under a fixed
// background theory by delegating to an external SMT prover.
//
// The Oracle interface is the only seam the synthesis core depends on.
// Process runs one prover per call, Session keeps a single incremental
// prover alive for the whole run, and Cache memoizes replies of either.
package oracle

import (
	"context"

	"github.com/gnolang/bowtie/internal/smt"
)

// Outcome is the answer to a single validity query.
//
// When Valid is false the query was refuted and Model may hold the value
// of each requested predicate in the refuting assignment, keyed by the
// predicate's rendering. Unknown marks a query the prover could not
// decide; it counts as not valid and carries no model.
type Outcome struct {
	Valid   bool            `json:"valid"`
	Unknown bool            `json:"unknown,omitempty"`
	Model   map[string]bool `json:"model,omitempty"`
}

// Value reports the model value of e and whether it was returned.
func (o Outcome) Value(e smt.Expr) (bool, bool) {
	if o.Model == nil {
		return false, false
	}
	v, ok := o.Model[e.String()]
	return v, ok
}

// Oracle decides validity under a background theory fixed at
// construction time.
type Oracle interface {
	// CheckValid decides whether formula is valid. If it is not and want
	// is non-empty, the outcome carries the value of every predicate in
	// want under the counterexample.
	CheckValid(ctx context.Context, formula smt.Expr, want []smt.Expr) (Outcome, error)

	// CheckBatch decides validity of every formula in a single round trip.
	// Outcomes are returned in request order and never carry models.
	CheckBatch(ctx context.Context, formulas []smt.Expr) ([]Outcome, error)

	// Simplify returns a solver-rewritten rendering of formula, or formula
	// itself when the solver offers nothing recognizable.
	Simplify(ctx context.Context, formula smt.Expr) (smt.Expr, error)
}
