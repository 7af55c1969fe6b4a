package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielolaszy/doc-issues/internal/consolidate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns metric values by family name and label values joined in
// label name order.
func gathered(t *testing.T, m *Metrics) map[string]map[string]float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	out := make(map[string]map[string]float64)
	for _, family := range families {
		values := make(map[string]float64)
		for _, metric := range family.GetMetric() {
			var labels string
			for _, pair := range metric.GetLabel() {
				if labels != "" {
					labels += ","
				}
				labels += pair.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				values[labels] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[labels] = metric.GetGauge().GetValue()
			}
		}
		out[family.GetName()] = values
	}
	return out
}

func TestObserverCounters(t *testing.T) {
	m := New()

	m.IssueConsolidated("org/a")
	m.IssueConsolidated("org/a")
	m.IssueConsolidated("org/b")
	m.Degraded("org/a", consolidate.DegradedTimeline)
	m.RepositoryFailed("org/c")

	values := gathered(t, m)
	assert.Equal(t, 2.0, values["doc_issues_consolidated_total"]["org/a"])
	assert.Equal(t, 1.0, values["doc_issues_consolidated_total"]["org/b"])
	assert.Equal(t, 1.0, values["doc_issues_degradations_total"]["timeline,org/a"])
	assert.Equal(t, 1.0, values["doc_issues_repository_failures_total"]["org/c"])
}

func TestObserveRun(t *testing.T) {
	m := New()
	start := time.Unix(1700000000, 0)

	m.ObserveRun(start, start.Add(90*time.Second), false)
	values := gathered(t, m)
	assert.Equal(t, 90.0, values["doc_issues_run_duration_seconds"][""])
	assert.Equal(t, 0.0, values["doc_issues_last_success_timestamp_seconds"][""])

	m.ObserveRun(start, start.Add(time.Second), true)
	values = gathered(t, m)
	assert.Equal(t, 1700000001.0, values["doc_issues_last_success_timestamp_seconds"][""])
}

func TestWriteToTextfile(t *testing.T) {
	m := New()
	m.IssueConsolidated("org/a")

	path := filepath.Join(t.TempDir(), "doc_issues.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `doc_issues_consolidated_total{repository="org/a"} 1`)

	err = m.WriteToTextfile(filepath.Join(t.TempDir(), "missing", "doc_issues.prom"))
	assert.Error(t, err)
}
