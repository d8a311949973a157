package learn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/bowtie/internal/oracle"
	"github.com/gnolang/bowtie/internal/oracle/oracletest"
	"github.com/gnolang/bowtie/internal/smt"
)

func filterTable() *oracletest.Table {
	states := oracletest.Enumerate("p", "q")
	oracletest.Define(states, "taut", func(oracletest.State) bool { return true })
	oracletest.Define(states, "contra", func(oracletest.State) bool { return false })
	return &oracletest.Table{States: states}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	table := filterTable()
	run := NewRun(nil, nil)
	pool := smt.Symbols("taut", "p", "contra", "q")

	kept, err := Filter(context.Background(), run, table, pool)
	require.NoError(t, err)
	assert.Equal(t, smt.Symbols("p", "q"), kept)
	assert.Equal(t, 4, run.Stats.Predicates)
	assert.Equal(t, 2, run.Stats.PredicatesFiltered)
	assert.Equal(t, 1, run.Stats.OracleCalls)
	assert.Equal(t, 8, table.Calls())

	again, err := Filter(context.Background(), NewRun(nil, nil), table, kept)
	require.NoError(t, err)
	assert.Equal(t, kept, again)
}

func TestFilter_Empty(t *testing.T) {
	t.Parallel()

	table := filterTable()
	run := NewRun(nil, nil)
	kept, err := Filter(context.Background(), run, table, nil)
	require.NoError(t, err)
	assert.Empty(t, kept)
	assert.Zero(t, run.Stats.OracleCalls)
}

type shortBatch struct{ *oracletest.Table }

func (s shortBatch) CheckBatch(ctx context.Context, fs []smt.Expr) ([]oracle.Outcome, error) {
	out, err := s.Table.CheckBatch(ctx, fs)
	return out[:len(out)-1], err
}

func TestFilter_ShortReply(t *testing.T) {
	t.Parallel()

	_, err := Filter(context.Background(), NewRun(nil, nil), shortBatch{filterTable()}, smt.Symbols("p", "q"))
	var perr *oracle.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "3 outcomes for 4 queries")
}
