package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Observe(Snapshot{Mode: "bowtie", OracleCalls: 12, Predicates: 9, PredicatesFiltered: 4, Elapsed: 2 * time.Second, Complete: true})
	r.Observe(Snapshot{Mode: "bowtie", OracleCalls: 3, Predicates: 9, PredicatesFiltered: 5, Elapsed: time.Second})

	assert.Equal(t, 15.0, testutil.ToFloat64(r.oracleCalls.WithLabelValues("bowtie")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.predicatesFiltered.WithLabelValues("bowtie")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runSeconds.WithLabelValues("bowtie")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.complete.WithLabelValues("bowtie")))

	n, err := testutil.GatherAndCount(r.Registry())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(`
# HELP bowtie_oracle_calls_total Validity oracle invocations.
# TYPE bowtie_oracle_calls_total counter
bowtie_oracle_calls_total{mode="bowtie"} 15
`), "bowtie_oracle_calls_total"))

	path := filepath.Join(t.TempDir(), "bowtie.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `bowtie_oracle_calls_total{mode="bowtie"} 15`)
	assert.Contains(t, text, `bowtie_predicates{mode="bowtie"} 9`)
	assert.Contains(t, text, `bowtie_answer_complete{mode="bowtie"} 0`)
	assert.True(t, strings.Contains(text, "# TYPE bowtie_run_seconds gauge"))
}

func TestRecorder_WriteError(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.ErrorContains(t, err, "write metrics")
}
