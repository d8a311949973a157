package learn

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/bowtie/internal/oracle"
	"github.com/gnolang/bowtie/internal/smt"
)

// Filter drops every predicate that is valid or unsatisfiable under the
// background theory. Both questions for the whole pool go to the oracle
// in one batch.
func Filter(ctx context.Context, run *Run, o oracle.Oracle, preds []smt.Expr) ([]smt.Expr, error) {
	run.Stats.Predicates = len(preds)
	if len(preds) == 0 {
		run.Stats.PredicatesFiltered = 0
		return nil, nil
	}

	queries := make([]smt.Expr, 0, 2*len(preds))
	for _, p := range preds {
		queries = append(queries, p, smt.Not(p))
	}
	outs, err := run.checkBatch(ctx, o, queries)
	if err != nil {
		return nil, fmt.Errorf("filter predicates: %w", err)
	}
	if len(outs) != len(queries) {
		return nil, &oracle.ProtocolError{
			Reason: fmt.Sprintf("filter got %d outcomes for %d queries", len(outs), len(queries)),
		}
	}

	var kept []smt.Expr
	for i, p := range preds {
		if !outs[2*i].Valid && !outs[2*i+1].Valid {
			kept = append(kept, p)
			continue
		}
		run.Logger.Debug("dropped trivial predicate",
			zap.Stringer("predicate", p),
			zap.Bool("tautology", outs[2*i].Valid),
		)
	}
	run.Stats.PredicatesFiltered = len(kept)
	return kept, nil
}
