package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/fedramp_marketplace/internal/config"
)

func TestSetupDisabledReturnsNil(t *testing.T) {
	provider, err := Setup(context.Background(), config.ObservabilityConfig{})
	require.NoError(t, err)
	require.Nil(t, provider)

	// nil providers are safe to use
	provider.RecordGroup("request", 1, 0)
	provider.RecordSnapshotReload(nil)
	provider.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
	require.Nil(t, provider.PrometheusHandler())
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestSetupMetricsRecordsCatalogCounters(t *testing.T) {
	provider, err := Setup(context.Background(), config.ObservabilityConfig{EnableMetrics: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	provider.RecordGroup("request", 3, 2)
	provider.RecordGroup("agency", 1, 0)
	provider.RecordSnapshotReload(nil)
	provider.RecordSnapshotReload(errors.New("boom"))

	require.Equal(t, 1.0, counterValue(t, provider, "fedramp_marketplace_catalog_group_requests_total", "origin", "request"))
	require.Equal(t, 1.0, counterValue(t, provider, "fedramp_marketplace_catalog_group_requests_total", "origin", "agency"))
	require.Equal(t, 2.0, counterValue(t, provider, "fedramp_marketplace_catalog_unresolved_entries_total", "", ""))
	require.Equal(t, 1.0, counterValue(t, provider, "fedramp_marketplace_catalog_snapshot_reloads_total", "status", "error"))
	require.NotNil(t, provider.PrometheusHandler())
	require.Nil(t, provider.TracerProvider())
}

func counterValue(t *testing.T, provider *Provider, name, label, value string) float64 {
	t.Helper()
	families, err := provider.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, pair := range m.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
