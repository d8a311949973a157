// Package precond synthesizes the conditions under which two operations
// of a specification commute, and answers the related determinism and
// totality questions.
package precond

import (
	"context"
	"errors"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/go-version"
	"go.uber.org/zap"

	"github.com/gnolang/bowtie/internal/bowtie"
	"github.com/gnolang/bowtie/internal/learn"
	"github.com/gnolang/bowtie/internal/metrics"
	"github.com/gnolang/bowtie/internal/oracle"
	"github.com/gnolang/bowtie/internal/smt"
	"github.com/gnolang/bowtie/internal/spec"
)

// OracleFactory builds the oracle for one background theory. The returned
// function releases it.
type OracleFactory func(ctx context.Context, cfg oracle.Config, session bool, theory string, logger *zap.Logger) (oracle.Oracle, func() error, error)

// ProverOracle starts the configured prover.
func ProverOracle(ctx context.Context, cfg oracle.Config, session bool, theory string, logger *zap.Logger) (oracle.Oracle, func() error, error) {
	if !session {
		return oracle.NewProcess(cfg, theory, logger), func() error { return nil }, nil
	}
	s, err := oracle.StartSession(ctx, cfg, theory, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

type Option func(*Engine)

// WithOracleFactory replaces the prover, typically with a test oracle.
func WithOracleFactory(f OracleFactory) Option {
	return func(e *Engine) { e.newOracle = f }
}

// Engine runs synthesis requests with a fixed configuration.
type Engine struct {
	cfg       Config
	logger    *zap.Logger
	newOracle OracleFactory
	recorder  *metrics.Recorder

	cacheOnce sync.Once
	cacheDB   *badger.DB
	cacheErr  error
}

func New(cfg Config, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:       cfg,
		logger:    logger,
		newOracle: ProverOracle,
		recorder:  metrics.NewRecorder(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the reply cache, if one was opened.
func (e *Engine) Close() error {
	if e.cacheDB != nil {
		return e.cacheDB.Close()
	}
	return nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// CheckEnvironment verifies the configured prover.
func (e *Engine) CheckEnvironment(ctx context.Context) (*version.Version, error) {
	return oracle.CheckEnvironment(ctx, e.cfg.Solver.Oracle())
}

// Request names the two operations to relate.
type Request struct {
	SpecPath string
	First    string
	Second   string
	// PredicatesPath, when set, replaces the generated candidate pool.
	PredicatesPath  string
	Mode            bowtie.Mode
	ExtraSolverArgs []string
	// Poke and Verify override the configuration when set.
	Poke     *bool
	Verify   *bool
	Progress learn.Progress
}

// Report is the outcome of a request.
type Report struct {
	RunID  string
	Mode   bowtie.Mode
	First  string
	Second string

	// Answer is the precondition, or true/false for modes settled by a
	// single query.
	Answer smt.Expr
	// Holds is the verdict of a single-query mode.
	Holds bool
	// Patched marks an answer conjoined with the negated bottom regions
	// because some branch was left undecided.
	Patched    bool
	Complete   bool
	Top        []learn.Region
	RawTop     []learn.Region
	Bottom     []learn.Region
	Unresolved []learn.Region
	Checks     *learn.Checks
	Predicates []smt.Expr
	Stats      learn.Stats
}

type prepared struct {
	model      *spec.Model
	obligation *bowtie.Obligation
	run        *learn.Run
	oracle     oracle.Oracle
	release    func() error
}

func (e *Engine) prepare(ctx context.Context, req Request) (*prepared, error) {
	model, err := spec.Load(req.SpecPath)
	if err != nil {
		return nil, err
	}
	ob, err := bowtie.Generate(model, req.First, req.Second, req.Mode)
	if err != nil {
		return nil, err
	}

	run := learn.NewRun(e.logger, req.Progress)
	run.Logger.Info("synthesizing",
		zap.String("spec", req.SpecPath),
		zap.String("first", req.First),
		zap.String("second", req.Second),
		zap.Stringer("mode", req.Mode),
	)

	ocfg := e.cfg.Solver.Oracle()
	ocfg.ExtraArgs = append(append([]string(nil), ocfg.ExtraArgs...), req.ExtraSolverArgs...)
	ocfg.DumpScripts = e.cfg.DumpScripts
	theory := ob.Theory()

	o, release, err := e.newOracle(ctx, ocfg, e.cfg.Solver.Session, theory, run.Logger)
	if err != nil {
		return nil, err
	}
	if e.cfg.Cache.Enabled {
		db, err := e.openCache()
		if err != nil {
			_ = release()
			return nil, err
		}
		o = oracle.NewCache(o, db, ocfg.CacheScope(theory), run.Logger)
	}
	return &prepared{model: model, obligation: ob, run: run, oracle: o, release: release}, nil
}

func (e *Engine) openCache() (*badger.DB, error) {
	e.cacheOnce.Do(func() {
		e.cacheDB, e.cacheErr = oracle.OpenCacheDB(oracle.CacheConfig{Dir: e.cfg.Cache.Dir}, e.logger)
	})
	return e.cacheDB, e.cacheErr
}

func (e *Engine) pool(p *prepared, req Request) ([]smt.Expr, error) {
	if req.PredicatesPath != "" {
		return spec.LoadPredicates(req.PredicatesPath)
	}
	return bowtie.Candidates(p.model, p.obligation)
}

// FilterPredicates returns the candidate pool without trivial predicates.
func (e *Engine) FilterPredicates(ctx context.Context, req Request) ([]smt.Expr, learn.Stats, error) {
	p, err := e.prepare(ctx, req)
	if err != nil {
		return nil, learn.Stats{}, err
	}
	defer p.release()

	preds, err := e.pool(p, req)
	if err != nil {
		return nil, learn.Stats{}, err
	}
	kept, err := learn.Filter(ctx, p.run, p.oracle, preds)
	if err != nil {
		return nil, learn.Stats{}, e.fail(p.run, err)
	}
	return kept, p.run.Finish(), nil
}

// Synthesize answers req.
func (e *Engine) Synthesize(ctx context.Context, req Request) (*Report, error) {
	p, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	defer p.release()

	report, err := e.synthesize(ctx, p, req)
	if err != nil {
		return nil, e.fail(p.run, err)
	}
	report.Stats = p.run.Finish()
	e.record(report)

	p.run.Logger.Info("synthesized",
		zap.Stringer("answer", report.Answer),
		zap.Bool("complete", report.Complete),
		zap.Int("smtqueries", report.Stats.OracleCalls),
		zap.Duration("elapsed", report.Stats.Elapsed),
	)
	return report, nil
}

func (e *Engine) synthesize(ctx context.Context, p *prepared, req Request) (*Report, error) {
	run, ob := p.run, p.obligation
	report := &Report{
		RunID:    run.ID,
		Mode:     req.Mode,
		First:    req.First,
		Second:   req.Second,
		Complete: true,
	}

	if !req.Mode.Learned() {
		holds, err := learn.Decide(ctx, run, p.oracle, ob.Property())
		if err != nil {
			return nil, err
		}
		report.Holds = holds
		report.Answer = smt.False
		if holds {
			report.Answer = smt.True
		}
		return report, nil
	}

	preds, err := e.pool(p, req)
	if err != nil {
		return nil, err
	}
	run.Logger.Debug("candidate predicates", zap.Stringers("predicates", preds))
	preds, err = learn.Filter(ctx, run, p.oracle, preds)
	if err != nil {
		return nil, err
	}
	run.Logger.Debug("filtered predicates", zap.Stringers("predicates", preds))
	report.Predicates = preds

	poke := e.cfg.Poke
	if req.Poke != nil {
		poke = *req.Poke
	}
	learned, err := learn.NewLearner(p.oracle, run, ob.Trigger(), ob.Property(), preds, learn.Options{Poke: poke}).Learn(ctx)
	if err != nil {
		return nil, err
	}

	answer, err := learn.Simplify(ctx, run, p.oracle, learn.Assemble(learned))
	if err != nil {
		return nil, err
	}
	if answer.Patched {
		run.Logger.Warn("answer patched with negated bottom regions", zap.Int("unresolved", len(run.Unresolved)))
	}

	verify := e.cfg.Verify
	if req.Verify != nil {
		verify = *req.Verify
	}
	if verify {
		checks, err := learn.Verify(ctx, run, p.oracle, ob.Trigger(), learned, answer)
		if err != nil {
			return nil, err
		}
		report.Checks = &checks
	}

	report.Answer = answer.Formula
	report.Patched = answer.Patched
	report.Complete = learned.Complete
	report.Top = learned.Top
	report.RawTop = learned.RawTop
	report.Bottom = learned.Bottom
	report.Unresolved = run.Unresolved
	return report, nil
}

// fail logs the raw exchange of protocol errors before returning err.
func (e *Engine) fail(run *learn.Run, err error) error {
	var perr *oracle.ProtocolError
	if errors.As(err, &perr) {
		run.Logger.Error("oracle protocol error",
			zap.String("reason", perr.Reason),
			zap.String("request", perr.Request),
			zap.String("response", perr.Response),
			zap.String("stderr", perr.Stderr),
		)
	}
	return err
}

func (e *Engine) record(r *Report) {
	if e.cfg.MetricsFile == "" {
		return
	}
	e.recorder.Observe(metrics.Snapshot{
		Mode:               r.Mode.String(),
		OracleCalls:        r.Stats.OracleCalls,
		Predicates:         r.Stats.Predicates,
		PredicatesFiltered: r.Stats.PredicatesFiltered,
		Elapsed:            r.Stats.Elapsed,
		Complete:           r.Complete,
	})
	if err := e.recorder.WriteTextfile(e.cfg.MetricsFile); err != nil {
		e.logger.Warn("cannot write metrics", zap.Error(err))
	}
}

// String renders the answer line printed on standard output.
func (r *Report) String() string {
	if r.Answer == nil {
		return ""
	}
	return r.Answer.String()
}
