package precond

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnolang/bowtie/internal/bowtie"
	"github.com/gnolang/bowtie/internal/oracle"
	"github.com/gnolang/bowtie/internal/oracle/oracletest"
	"github.com/gnolang/bowtie/internal/smt"
	"github.com/gnolang/bowtie/internal/spec"
)

func tableFactory(o oracle.Oracle) OracleFactory {
	return func(context.Context, oracle.Config, bool, string, *zap.Logger) (oracle.Oracle, func() error, error) {
		return o, func() error { return nil }, nil
	}
}

// amountTable covers the counter predicates file.
func amountTable(bowtie func(oracletest.State) bool) *oracletest.Table {
	states := oracletest.Keep(oracletest.Enumerate("(> x1 0)", "(= x1 0)"), func(s oracletest.State) bool {
		return !(s["(> x1 0)"] && s["(= x1 0)"])
	})
	oracletest.Define(states, "oper", func(oracletest.State) bool { return true })
	oracletest.Define(states, "bowtie", bowtie)
	return &oracletest.Table{States: states}
}

func newEngine(t *testing.T, o oracle.Oracle, edit func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if edit != nil {
		edit(&cfg)
	}
	e, err := New(cfg, zap.NewNop(), WithOracleFactory(tableFactory(o)))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func counterRequest() Request {
	return Request{
		SpecPath:       filepath.Join("testdata", "counter.yaml"),
		First:          "increment",
		Second:         "read",
		PredicatesPath: filepath.Join("testdata", "counter.preds"),
		Mode:           bowtie.ModeBowtie,
	}
}

func TestSynthesize_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		holds    func(oracletest.State) bool
		expected string
		calls    int
	}{
		{"independent operations", func(oracletest.State) bool { return true }, "true", 3},
		{"conflicting writes", func(oracletest.State) bool { return false }, "false", 2},
		{"zero amount only", func(s oracletest.State) bool { return s["(= x1 0)"] }, "(= x1 0)", 9},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEngine(t, amountTable(tt.holds), nil)

			report, err := e.Synthesize(context.Background(), counterRequest())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, report.String())
			assert.True(t, report.Complete)
			assert.False(t, report.Patched)
			assert.Nil(t, report.Checks)
			assert.Len(t, report.RunID, 8)
			assert.Equal(t, 2, report.Stats.Predicates)
			assert.Equal(t, 2, report.Stats.PredicatesFiltered)
			assert.Equal(t, tt.calls, report.Stats.OracleCalls)
		})
	}
}

func TestSynthesize_GeneratedCandidates(t *testing.T) {
	t.Parallel()

	model, err := spec.Load(filepath.Join("testdata", "counter.yaml"))
	require.NoError(t, err)
	ob, err := bowtie.Generate(model, "increment", "read", bowtie.ModeBowtie)
	require.NoError(t, err)
	cands, err := bowtie.Candidates(model, ob)
	require.NoError(t, err)

	atoms := make([]string, len(cands))
	for i, c := range cands {
		atoms[i] = c.String()
	}
	states := oracletest.Enumerate(atoms...)
	oracletest.Define(states, "oper", func(oracletest.State) bool { return true })
	oracletest.Define(states, "bowtie", func(s oracletest.State) bool { return s["(= x1 0)"] })

	e := newEngine(t, &oracletest.Table{States: states}, nil)
	req := counterRequest()
	req.PredicatesPath = ""
	report, err := e.Synthesize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "(= x1 0)", report.String())
	assert.Equal(t, len(cands), report.Stats.Predicates)
	assert.Equal(t, cands, report.Predicates)
	assert.Equal(t, "[[(= x1 0)]]", regionsString(report.Top))
}

func regionsString[T interface{ String() string }](rs []T) string {
	out := "["
	for i, r := range rs {
		if i > 0 {
			out += " "
		}
		out += r.String()
	}
	return out + "]"
}

func TestSynthesize_Verify(t *testing.T) {
	t.Parallel()

	e := newEngine(t, amountTable(func(s oracletest.State) bool { return s["(> x1 0)"] }), func(c *Config) { c.Verify = true })
	report, err := e.Synthesize(context.Background(), counterRequest())
	require.NoError(t, err)
	require.NotNil(t, report.Checks)
	assert.True(t, report.Checks.Complete)
	assert.True(t, report.Checks.Sound)
	assert.True(t, report.Checks.Equivalent)

	off := false
	req := counterRequest()
	req.Verify = &off
	report, err = e.Synthesize(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, report.Checks)
}

func TestSynthesize_PokeOverride(t *testing.T) {
	t.Parallel()

	holds := func(s oracletest.State) bool { return s["(> x1 0)"] }
	on, off := true, false

	withPoke := counterRequest()
	withPoke.Poke = &on
	withoutPoke := counterRequest()
	withoutPoke.Poke = &off

	a, err := newEngine(t, amountTable(holds), nil).Synthesize(context.Background(), withPoke)
	require.NoError(t, err)
	b, err := newEngine(t, amountTable(holds), nil).Synthesize(context.Background(), withoutPoke)
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
	assert.Greater(t, a.Stats.OracleCalls, b.Stats.OracleCalls)
}

func TestSynthesize_SingleQueryModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode     bowtie.Mode
		atom     string
		holds    bool
		expected string
	}{
		{bowtie.ModeDeterministic, "deterministic", true, "true"},
		{bowtie.ModeDeterministic, "deterministic", false, "false"},
		{bowtie.ModeComplete, "complete", true, "true"},
		{bowtie.ModeComplete, "complete", false, "false"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.mode.String()+"/"+tt.expected, func(t *testing.T) {
			t.Parallel()
			table := &oracletest.Table{States: []oracletest.State{{tt.atom: tt.holds}}}
			e := newEngine(t, table, nil)

			req := counterRequest()
			req.Mode = tt.mode
			report, err := e.Synthesize(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.holds, report.Holds)
			assert.Equal(t, tt.expected, report.String())
			assert.Equal(t, 1, report.Stats.OracleCalls)
			assert.Empty(t, report.Predicates)
		})
	}
}

func TestSynthesize_Unresolved(t *testing.T) {
	t.Parallel()

	e := newEngine(t, amountTable(func(oracletest.State) bool { return true }), nil)
	req := counterRequest()
	req.Second = "decrement"
	_, err := e.Synthesize(context.Background(), req)
	assert.ErrorIs(t, err, spec.ErrUnresolvedOperation)
}

type truncating struct{ *oracletest.Table }

func (t truncating) CheckBatch(ctx context.Context, fs []smt.Expr) ([]oracle.Outcome, error) {
	out, err := t.Table.CheckBatch(ctx, fs)
	return out[1:], err
}

func TestSynthesize_ProtocolError(t *testing.T) {
	t.Parallel()

	e := newEngine(t, truncating{amountTable(func(oracletest.State) bool { return true })}, nil)
	_, err := e.Synthesize(context.Background(), counterRequest())
	var perr *oracle.ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestSynthesize_Metrics(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bowtie.prom")
	e := newEngine(t, amountTable(func(oracletest.State) bool { return true }), func(c *Config) { c.MetricsFile = path })
	_, err := e.Synthesize(context.Background(), counterRequest())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `bowtie_oracle_calls_total{mode="bowtie"} 3`)
	assert.Contains(t, string(data), `bowtie_answer_complete{mode="bowtie"} 1`)
}

func TestSynthesize_Cache(t *testing.T) {
	t.Parallel()

	table := amountTable(func(s oracletest.State) bool { return s["(= x1 0)"] })
	dir := t.TempDir()
	e := newEngine(t, table, func(c *Config) {
		c.Cache = CacheConfig{Enabled: true, Dir: dir}
	})

	first, err := e.Synthesize(context.Background(), counterRequest())
	require.NoError(t, err)
	calls := table.Calls()

	second, err := e.Synthesize(context.Background(), counterRequest())
	require.NoError(t, err)
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, calls, table.Calls())

	// other prover arguments get their own replies
	req := counterRequest()
	req.ExtraSolverArgs = []string{"--seed=7"}
	third, err := e.Synthesize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.String(), third.String())
	assert.Equal(t, 2*calls, table.Calls())
}

func TestFilterPredicates(t *testing.T) {
	t.Parallel()

	states := oracletest.Enumerate("(> x1 0)")
	oracletest.Define(states, "(= x1 0)", func(oracletest.State) bool { return false })
	e := newEngine(t, &oracletest.Table{States: states}, nil)

	kept, stats, err := e.FilterPredicates(context.Background(), counterRequest())
	require.NoError(t, err)
	assert.Equal(t, []smt.Expr{smt.MustParse("(> x1 0)")}, kept)
	assert.Equal(t, 2, stats.Predicates)
	assert.Equal(t, 1, stats.PredicatesFiltered)
	assert.Equal(t, 1, stats.OracleCalls)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Solver.Path = ""
	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, "invalid configuration")
}
