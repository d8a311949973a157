package learn

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/gnolang/bowtie/internal/oracle"
	"github.com/gnolang/bowtie/internal/smt"
)

// Answer is the synthesized precondition.
type Answer struct {
	Formula smt.Expr
	// Patched is set when the search was incomplete and the formula was
	// conjoined with the negation of every bottom region.
	Patched bool
}

// Assemble builds the precondition from the learned partitions.
func Assemble(learned *Learned) Answer {
	top := Disjunction(learned.Top)
	if learned.Complete {
		return Answer{Formula: top}
	}
	parts := make([]smt.Expr, 0, len(learned.Bottom)+1)
	parts = append(parts, top)
	for _, r := range learned.Bottom {
		parts = append(parts, smt.Not(r.Expr()))
	}
	return Answer{Formula: smt.And(parts...), Patched: true}
}

// Simplify asks the oracle for a shorter rendering of the answer. Any
// failure other than cancellation leaves the formula unchanged.
func Simplify(ctx context.Context, run *Run, o oracle.Oracle, answer Answer) (Answer, error) {
	out, err := o.Simplify(ctx, answer.Formula)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return answer, err
		}
		run.Logger.Warn("simplification failed, keeping the assembled formula", zap.Error(err))
		return answer, nil
	}
	answer.Formula = out
	return answer, nil
}

// Checks are the results of the optional verification queries.
type Checks struct {
	// Complete: every state allowed by the trigger is classified.
	Complete bool
	// Sound: no state is classified both ways.
	Sound bool
	// Equivalent: the answer agrees with the top partition wherever the
	// trigger holds. Only checked for complete searches.
	Equivalent bool
}

// Verify runs the diagnostic checks. A failed check is reported, never
// treated as an error.
func Verify(ctx context.Context, run *Run, o oracle.Oracle, trigger smt.Expr, learned *Learned, answer Answer) (Checks, error) {
	top, bottom := Disjunction(learned.Top), Disjunction(learned.Bottom)

	complete, err := run.checkValid(ctx, o, smt.Or(smt.Not(trigger), top, bottom), nil)
	if err != nil {
		return Checks{}, err
	}
	sound, err := run.checkValid(ctx, o, smt.Not(smt.And(trigger, top, bottom)), nil)
	if err != nil {
		return Checks{}, err
	}
	checks := Checks{Complete: complete.Valid, Sound: sound.Valid}

	if learned.Complete && answer.Formula != nil {
		eq, err := run.checkValid(ctx, o, smt.Implies(trigger, smt.Eq(answer.Formula, top)), nil)
		if err != nil {
			return Checks{}, err
		}
		checks.Equivalent = eq.Valid
	}

	log := run.Logger.Info
	if !checks.Complete || !checks.Sound {
		log = run.Logger.Warn
	}
	log("verification", zap.Bool("complete", checks.Complete), zap.Bool("sound", checks.Sound), zap.Bool("equivalent", checks.Equivalent))
	return checks, nil
}

// Decide settles a property by a single validity query.
func Decide(ctx context.Context, run *Run, o oracle.Oracle, property smt.Expr) (bool, error) {
	out, err := run.checkValid(ctx, o, property, nil)
	if err != nil {
		return false, err
	}
	run.Logger.Debug("decided", zap.Stringer("property", property), zap.Bool("valid", out.Valid))
	return out.Valid, nil
}
