package learn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnolang/bowtie/internal/oracle/oracletest"
	"github.com/gnolang/bowtie/internal/smt"
)

var (
	oper   = smt.Symbol("oper")
	bowtie = smt.Symbol("bowtie")
	p      = smt.Symbol("p")
	q      = smt.Symbol("q")
)

// universe assigns oper everywhere and bowtie by prop.
func universe(states []oracletest.State, prop func(oracletest.State) bool) *oracletest.Table {
	states = oracletest.Define(states, "oper", func(oracletest.State) bool { return true })
	states = oracletest.Define(states, "bowtie", prop)
	return &oracletest.Table{States: states}
}

func pq(vals ...[2]bool) []oracletest.State {
	out := make([]oracletest.State, len(vals))
	for i, v := range vals {
		out[i] = oracletest.State{"p": v[0], "q": v[1]}
	}
	return out
}

func rendered(rs []Region) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}

type counter struct{ n int }

func (c *counter) Add(n int) error {
	c.n += n
	return nil
}

func TestLearn_SingleSplit(t *testing.T) {
	t.Parallel()

	table := universe(oracletest.Enumerate("p"), func(s oracletest.State) bool { return s["p"] })
	progress := &counter{}
	run := NewRun(zap.NewNop(), progress)

	learned, err := NewLearner(table, run, oper, bowtie, []smt.Expr{p}, Options{Poke: true}).Learn(context.Background())
	require.NoError(t, err)

	assert.True(t, learned.Complete)
	assert.Equal(t, []string{"[p]"}, rendered(learned.Top))
	assert.Equal(t, []string{"[p]"}, rendered(learned.RawTop))
	assert.Equal(t, []string{"[(not p)]"}, rendered(learned.Bottom))
	assert.Equal(t, "p", Assemble(learned).Formula.String())

	assert.Equal(t, 8, run.Stats.OracleCalls)
	assert.Equal(t, 8, table.Calls())
	assert.Equal(t, 8, progress.n)
}

// In this universe both p and q separate the root counterexamples, but
// only q matters.
func mergeUniverse() *oracletest.Table {
	states := pq([2]bool{true, true}, [2]bool{false, false}, [2]bool{false, true}, [2]bool{true, false})
	return universe(states, func(s oracletest.State) bool { return s["q"] })
}

func TestLearn_MergeDropsIrrelevantSplit(t *testing.T) {
	t.Parallel()

	table := mergeUniverse()
	run := NewRun(nil, nil)
	learned, err := NewLearner(table, run, oper, bowtie, []smt.Expr{p, q}, Options{Poke: false}).Learn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"[q]"}, rendered(learned.Top))
	assert.Equal(t, []string{"[p q]", "[(not p) q]"}, rendered(learned.RawTop))
	assert.Equal(t, []string{"[p (not q)]", "[(not p) (not q)]"}, rendered(learned.Bottom))

	answer := Assemble(learned)
	assert.False(t, answer.Patched)
	assert.Equal(t, "q", answer.Formula.String())
	assert.NotContains(t, answer.Formula.String(), "p")
	assert.Equal(t, 12, run.Stats.OracleCalls)
}

func TestLearn_PokePrefersResolvingSplit(t *testing.T) {
	t.Parallel()

	table := mergeUniverse()
	run := NewRun(nil, nil)
	learned, err := NewLearner(table, run, oper, bowtie, []smt.Expr{p, q}, Options{Poke: true}).Learn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"[q]"}, rendered(learned.Top))
	assert.Equal(t, []string{"[q]"}, rendered(learned.RawTop))
	assert.Equal(t, []string{"[(not q)]"}, rendered(learned.Bottom))
	assert.Equal(t, 12, run.Stats.OracleCalls)
}

func TestLearn_WeightBreaksTies(t *testing.T) {
	t.Parallel()

	long := smt.MustParse("(> x 0)")
	states := []oracletest.State{
		{"(> x 0)": true, "p": true},
		{"(> x 0)": false, "p": false},
		{"(> x 0)": true, "p": false},
		{"(> x 0)": false, "p": true},
	}
	table := universe(states, func(s oracletest.State) bool { return s["p"] })

	learned, err := NewLearner(table, NewRun(nil, nil), oper, bowtie, []smt.Expr{long, p}, Options{}).Learn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"[p]"}, rendered(learned.Top))
	assert.Equal(t, []string{"[(not p)]"}, rendered(learned.Bottom))
}

func TestLearn_Deterministic(t *testing.T) {
	t.Parallel()

	preds := []smt.Expr{q, p}
	for _, poke := range []bool{true, false} {
		first, err := NewLearner(mergeUniverse(), NewRun(nil, nil), oper, bowtie, preds, Options{Poke: poke}).Learn(context.Background())
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			again, err := NewLearner(mergeUniverse(), NewRun(nil, nil), oper, bowtie, preds, Options{Poke: poke}).Learn(context.Background())
			require.NoError(t, err)
			assert.Equal(t, rendered(first.Top), rendered(again.Top))
			assert.Equal(t, rendered(first.RawTop), rendered(again.RawTop))
			assert.Equal(t, rendered(first.Bottom), rendered(again.Bottom))
		}
	}
}

func TestLearn_Exhausted(t *testing.T) {
	t.Parallel()

	// bowtie depends on r, which is not in the pool.
	table := universe(oracletest.Enumerate("p", "r"), func(s oracletest.State) bool { return s["p"] && s["r"] })
	run := NewRun(nil, nil)
	learned, err := NewLearner(table, run, oper, bowtie, []smt.Expr{p}, Options{Poke: true}).Learn(context.Background())
	require.NoError(t, err)

	assert.False(t, learned.Complete)
	assert.False(t, run.Complete)
	assert.Equal(t, []string{"[p]"}, rendered(run.Unresolved))
	assert.Empty(t, learned.Top)
	assert.Empty(t, learned.RawTop)
	assert.Equal(t, []string{"[(not p)]"}, rendered(learned.Bottom))

	answer := Assemble(learned)
	assert.True(t, answer.Patched)
	assert.Equal(t, "(and false (not (not p)))", answer.Formula.String())
}

func TestLearn_TrivialRoots(t *testing.T) {
	t.Parallel()

	atoms := oracletest.Keep(oracletest.Enumerate("(> x1 0)", "(= x1 0)"), func(s oracletest.State) bool {
		return !(s["(> x1 0)"] && s["(= x1 0)"])
	})
	preds := []smt.Expr{smt.MustParse("(> x1 0)"), smt.MustParse("(= x1 0)")}

	tests := []struct {
		name     string
		holds    bool
		expected string
		calls    int
	}{
		{"independent operations", true, "true", 2},
		{"conflicting writes", false, "false", 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			states := make([]oracletest.State, len(atoms))
			for i, s := range atoms {
				states[i] = oracletest.State{}
				for k, v := range s {
					states[i][k] = v
				}
			}
			table := universe(states, func(oracletest.State) bool { return tt.holds })
			run := NewRun(nil, nil)
			learned, err := NewLearner(table, run, oper, bowtie, preds, Options{Poke: true}).Learn(context.Background())
			require.NoError(t, err)
			assert.True(t, learned.Complete)
			assert.Equal(t, tt.expected, Assemble(learned).Formula.String())
			assert.Equal(t, tt.calls, run.Stats.OracleCalls)
		})
	}
}

func TestLearn_OracleError(t *testing.T) {
	t.Parallel()

	table := mergeUniverse()
	table.Err = assert.AnError
	_, err := NewLearner(table, NewRun(nil, nil), oper, bowtie, []smt.Expr{p}, Options{Poke: true}).Learn(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestWithout(t *testing.T) {
	t.Parallel()

	window := []int{4, 5, 6, 7}
	assert.Equal(t, []int{5, 6, 7}, without(window, 0))
	assert.Equal(t, []int{5, 4, 7}, without(window, 2))
	assert.Equal(t, []int{4, 5, 6, 7}, window)
	assert.Empty(t, without([]int{3}, 0))
}

func TestStats_Lines(t *testing.T) {
	t.Parallel()

	s := Stats{OracleCalls: 3, Predicates: 10, PredicatesFiltered: 4, Elapsed: 1500 * time.Millisecond}
	assert.Equal(t, []string{
		"smtqueries, 3",
		"predicates, 10",
		"predicatesFiltered, 4",
		"time, 1.50",
	}, s.Lines())
}

func TestNewRun(t *testing.T) {
	t.Parallel()

	a, b := NewRun(nil, nil), NewRun(nil, nil)
	assert.Len(t, a.ID, 8)
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Complete)
	time.Sleep(time.Millisecond)
	assert.Positive(t, a.Finish().Elapsed)
}
