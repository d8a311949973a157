package learn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnolang/bowtie/internal/oracle"
	"github.com/gnolang/bowtie/internal/smt"
)

// Stats are the counters reported at the end of a run.
type Stats struct {
	OracleCalls        int
	Predicates         int
	PredicatesFiltered int
	Elapsed            time.Duration
}

// Lines renders the counters as "name, value" lines.
func (s Stats) Lines() []string {
	return []string{
		fmt.Sprintf("smtqueries, %d", s.OracleCalls),
		fmt.Sprintf("predicates, %d", s.Predicates),
		fmt.Sprintf("predicatesFiltered, %d", s.PredicatesFiltered),
		fmt.Sprintf("time, %.2f", s.Elapsed.Seconds()),
	}
}

// Progress is notified once per oracle call.
type Progress interface {
	Add(n int) error
}

// Run carries the state shared by every step of one synthesis: counters,
// the completeness flag and the logger.
type Run struct {
	ID     string
	Stats  Stats
	Logger *zap.Logger

	// Complete is cleared the first time a branch runs out of predicates.
	Complete bool
	// Unresolved holds the paths of exhausted branches.
	Unresolved []Region

	progress Progress
	start    time.Time
}

// NewRun starts a run. Both arguments may be nil.
func NewRun(logger *zap.Logger, progress Progress) *Run {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()[:8]
	return &Run{
		ID:       id,
		Logger:   logger.With(zap.String("run", id)),
		Complete: true,
		progress: progress,
		start:    time.Now(),
	}
}

// Finish freezes the elapsed time and returns the final counters.
func (r *Run) Finish() Stats {
	r.Stats.Elapsed = time.Since(r.start)
	return r.Stats
}

func (r *Run) called() {
	r.Stats.OracleCalls++
	if r.progress != nil {
		_ = r.progress.Add(1)
	}
}

func (r *Run) checkValid(ctx context.Context, o oracle.Oracle, f smt.Expr, want []smt.Expr) (oracle.Outcome, error) {
	r.called()
	out, err := o.CheckValid(ctx, f, want)
	if err == nil && out.Unknown {
		r.Logger.Warn("prover answered unknown, treating the query as not valid", zap.Stringer("formula", f))
	}
	return out, err
}

func (r *Run) checkBatch(ctx context.Context, o oracle.Oracle, fs []smt.Expr) ([]oracle.Outcome, error) {
	r.called()
	outs, err := o.CheckBatch(ctx, fs)
	if err != nil {
		return nil, err
	}
	for i, out := range outs {
		if out.Unknown && i < len(fs) {
			r.Logger.Warn("prover answered unknown, treating the query as not valid", zap.Stringer("formula", fs[i]))
		}
	}
	return outs, nil
}

func (r *Run) unresolved(path Region) {
	r.Complete = false
	r.Unresolved = append(r.Unresolved, path)
	r.Logger.Warn("predicates exhausted before a decision", zap.Stringer("path", path))
}
