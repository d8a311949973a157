package learn

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/gnolang/bowtie/internal/oracle"
	"github.com/gnolang/bowtie/internal/smt"
)

// Options tune the search.
type Options struct {
	// Poke ranks candidate splits by a one-level look-ahead.
	Poke bool
}

// Learned is the outcome of a search.
type Learned struct {
	// Top is the set of regions where the property holds, with sibling
	// branches that resolved identically collapsed.
	Top []Region
	// RawTop lists every top leaf as reached. It denotes the same states
	// as Top.
	RawTop []Region
	// Bottom lists every leaf where the property fails.
	Bottom []Region
	// Complete is false when some branch ran out of predicates.
	Complete bool
}

// Learner splits the states allowed by trigger into regions where
// property is valid and regions where its negation is.
type Learner struct {
	oracle   oracle.Oracle
	run      *Run
	trigger  smt.Expr
	property smt.Expr
	pool     []Predicate
	opts     Options

	rawTop []Region
	bottom []Region
}

// NewLearner prepares a search over preds, which should already be
// filtered. The pool is never modified.
func NewLearner(o oracle.Oracle, run *Run, trigger, property smt.Expr, preds []smt.Expr, opts Options) *Learner {
	pool := make([]Predicate, len(preds))
	for i, p := range preds {
		pool[i] = NewPredicate(p)
	}
	return &Learner{
		oracle:   o,
		run:      run,
		trigger:  trigger,
		property: property,
		pool:     pool,
		opts:     opts,
	}
}

// Learn runs the search from the whole trigger.
func (l *Learner) Learn(ctx context.Context) (*Learned, error) {
	window := make([]int, len(l.pool))
	for i := range window {
		window[i] = i
	}
	res, err := l.descend(ctx, nil, window, committing{l})
	if err != nil {
		return nil, err
	}
	l.run.Logger.Debug("partitions",
		zap.Stringers("top", l.rawTop),
		zap.Stringers("bottom", l.bottom),
	)
	return &Learned{
		Top:      res.regions,
		RawTop:   l.rawTop,
		Bottom:   l.bottom,
		Complete: l.run.Complete,
	}, nil
}

// result is what a node hands back to its parent: the continuations
// below it that lead to top leaves, or, when probing, the number of
// predicates still able to split it.
type result struct {
	regions []Region
	score   int
}

// strategy decides what resolving a node means.
type strategy interface {
	bottom(path Region) result
	top(path Region) result
	// probe reports whether an undecided node ends the descent.
	probe() bool
}

type committing struct{ l *Learner }

func (c committing) bottom(path Region) result {
	c.l.bottom = append(c.l.bottom, path)
	return result{}
}

func (c committing) top(path Region) result {
	c.l.rawTop = append(c.l.rawTop, path)
	return result{regions: []Region{{}}}
}

func (committing) probe() bool { return false }

// probing records nothing.
type probing struct{}

func (probing) bottom(Region) result { return result{} }
func (probing) top(Region) result    { return result{} }
func (probing) probe() bool          { return true }

type candidate struct {
	lookahead int
	weight    int
	pos       int
}

func (l *Learner) hypothesis(path Region) smt.Expr {
	es := make([]smt.Expr, 0, len(path)+1)
	es = append(es, l.trigger)
	for _, lit := range path {
		es = append(es, lit.Expr())
	}
	return smt.And(es...)
}

// descend decides the region path. window holds the pool indices still
// available below this node.
func (l *Learner) descend(ctx context.Context, path Region, window []int, s strategy) (result, error) {
	want := make([]smt.Expr, len(window))
	for k, idx := range window {
		want[k] = l.pool[idx].Expr
	}
	hyp := l.hypothesis(path)

	never, err := l.run.checkValid(ctx, l.oracle, smt.Implies(hyp, smt.Not(l.property)), want)
	if err != nil {
		return result{}, err
	}
	if never.Valid {
		return s.bottom(path), nil
	}
	always, err := l.run.checkValid(ctx, l.oracle, smt.Implies(hyp, l.property), want)
	if err != nil {
		return result{}, err
	}
	if always.Valid {
		return s.top(path), nil
	}

	// A predicate is interesting when it separates the two counterexamples.
	var cands []candidate
	for k, e := range want {
		v1, ok1 := never.Value(e)
		v2, ok2 := always.Value(e)
		if ok1 && ok2 && v1 != v2 {
			cands = append(cands, candidate{weight: l.pool[window[k]].Weight, pos: k})
		}
	}
	l.run.Logger.Debug("undecided region",
		zap.Stringer("path", path),
		zap.Int("remaining", len(window)),
		zap.Int("interesting", len(cands)),
		zap.Bool("probe", s.probe()),
	)
	if s.probe() {
		return result{score: len(cands)}, nil
	}

	if len(window) == 0 {
		l.run.unresolved(path)
		return result{}, nil
	}

	if l.opts.Poke {
		for i := range cands {
			p := l.pool[window[cands[i].pos]].Expr
			child := without(window, cands[i].pos)
			pos, err := l.descend(ctx, path.with(Literal{Predicate: p}), child, probing{})
			if err != nil {
				return result{}, err
			}
			neg, err := l.descend(ctx, path.with(Literal{Predicate: p, Negated: true}), child, probing{})
			if err != nil {
				return result{}, err
			}
			cands[i].lookahead = pos.score + neg.score
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.lookahead != b.lookahead {
			return a.lookahead < b.lookahead
		}
		if a.weight != b.weight {
			return a.weight < b.weight
		}
		return a.pos < b.pos
	})

	chosen := 0
	if len(cands) > 0 {
		chosen = cands[0].pos
	}
	p := l.pool[window[chosen]].Expr
	child := without(window, chosen)
	l.run.Logger.Debug("split", zap.Stringer("path", path), zap.Stringer("predicate", p))

	pos := Literal{Predicate: p}
	neg := Literal{Predicate: p, Negated: true}
	left, err := l.descend(ctx, path.with(pos), child, s)
	if err != nil {
		return result{}, err
	}
	right, err := l.descend(ctx, path.with(neg), child, s)
	if err != nil {
		return result{}, err
	}

	// The split made no difference, so p is left out of the result.
	if sameRegions(left.regions, right.regions) {
		return left, nil
	}
	return result{regions: append(prefixed(pos, left.regions), prefixed(neg, right.regions)...)}, nil
}

// without returns a fresh window lacking position k. The element at k
// trades places with the head before the head is dropped, preserving the
// order the rest of the window would have after an in-place swap.
func without(window []int, k int) []int {
	out := make([]int, len(window))
	copy(out, window)
	out[0], out[k] = out[k], out[0]
	return out[1:]
}
