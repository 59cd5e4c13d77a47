package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// TestRecorder checks every collector against a private registry.
func TestRecorder(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.ObserveCycle("applied", 150*time.Millisecond)
	r.ObserveCycle("applied", 20*time.Millisecond)
	r.ObserveCycle("dropped", 0)
	r.AddAlarms(2)
	r.AddChangedNodes(3)
	r.SetLastApplied(time.Unix(1700000000, 0))

	require.InDelta(t, 2.0, testutil.ToFloat64(r.cycles.WithLabelValues("applied")), 0)
	require.InDelta(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues("dropped")), 0)
	require.InDelta(t, 2.0, testutil.ToFloat64(r.alarms), 0)
	require.InDelta(t, 3.0, testutil.ToFloat64(r.changedNodes), 0)
	require.InDelta(t, 1700000000.0, testutil.ToFloat64(r.lastApplied), 0)

	expected := `
# HELP flow_monitor_alarms_total Alarm events emitted.
# TYPE flow_monitor_alarms_total counter
flow_monitor_alarms_total 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "flow_monitor_alarms_total"))
	require.Equal(t, 1, testutil.CollectAndCount(r.duration))

	// A second registration on the same registry fails.
	_, err = NewRecorder(reg)
	require.Error(t, err)
}
