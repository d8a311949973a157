// Package learn synthesizes the precondition under which a property of
// the background theory holds, by splitting the state space on candidate
// predicates until every region is proven to satisfy or to violate it.
package learn

import (
	"strings"

	"github.com/gnolang/bowtie/internal/smt"
)

// Predicate is a candidate split. Weight is the token count of its
// rendering and only breaks ties.
type Predicate struct {
	Expr   smt.Expr
	Weight int
}

// NewPredicate wraps e.
func NewPredicate(e smt.Expr) Predicate {
	return Predicate{Expr: e, Weight: smt.Weight(e)}
}

// Literal is a predicate or its negation.
type Literal struct {
	Predicate smt.Expr
	Negated   bool
}

func (l Literal) Expr() smt.Expr {
	if l.Negated {
		return smt.Not(l.Predicate)
	}
	return l.Predicate
}

// Region is a conjunction of literals.
type Region []Literal

// Expr renders the conjunction. The empty region is true.
func (r Region) Expr() smt.Expr {
	es := make([]smt.Expr, len(r))
	for i, l := range r {
		es[i] = l.Expr()
	}
	return smt.And(es...)
}

func (r Region) String() string {
	parts := make([]string, len(r))
	for i, l := range r {
		parts[i] = l.Expr().String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// with returns a copy of r extended by l.
func (r Region) with(l Literal) Region {
	out := make(Region, len(r), len(r)+1)
	copy(out, r)
	return append(out, l)
}

// prefixed returns copies of rs, each starting with l.
func prefixed(l Literal, rs []Region) []Region {
	out := make([]Region, len(rs))
	for i, r := range rs {
		out[i] = append(Region{l}, r...)
	}
	return out
}

func sameRegions(a, b []Region) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].String() != b[i].String() {
			return false
		}
	}
	return true
}

// Disjunction renders a set of regions. The empty set is false.
func Disjunction(rs []Region) smt.Expr {
	es := make([]smt.Expr, len(rs))
	for i, r := range rs {
		es[i] = r.Expr()
	}
	return smt.Or(es...)
}
