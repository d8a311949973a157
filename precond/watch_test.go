package precond

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/bowtie/internal/oracle/oracletest"
)

func TestWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"counter.yaml", "counter.preds"} {
		data, err := os.ReadFile(filepath.Join("testdata", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	e := newEngine(t, amountTable(func(oracletest.State) bool { return true }), nil)
	req := counterRequest()
	req.SpecPath = filepath.Join(dir, "counter.yaml")
	req.PredicatesPath = filepath.Join(dir, "counter.preds")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reports := make(chan *Report, 8)
	done := make(chan error, 1)
	go func() {
		done <- e.Watch(ctx, req, func(r *Report, err error) {
			assert.NoError(t, err)
			reports <- r
		})
	}()

	next := func() *Report {
		select {
		case r := <-reports:
			return r
		case <-time.After(10 * time.Second):
			t.Fatal("no report")
			return nil
		}
	}

	first := next()
	require.NotNil(t, first)
	assert.Equal(t, "true", first.String())

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(req.PredicatesPath, []byte("(> x1 0)\n"), 0o644))

	second := next()
	require.NotNil(t, second)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 1, second.Stats.Predicates)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
