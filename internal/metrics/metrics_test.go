package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("rtc", reg)

	m.EntriesRejectedTotal.WithLabelValues("missing_resource").Inc()
	m.PagesFetchedTotal.WithLabelValues("ok").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestEntriesNormalizedIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("rtc", reg)

	m.EntriesNormalized.Inc()
	m.EntriesNormalized.Inc()

	require.Equal(t, float64(2), counterValue(t, m.EntriesNormalized))
}
