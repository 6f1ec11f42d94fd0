package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	"github.com/AzielCF/az-eight/infrastructure/cachestore"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/AzielCF/az-eight/usecase"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func value(f *dto.MetricFamily, label string) float64 {
	for _, m := range f.GetMetric() {
		if label != "" {
			match := false
			for _, l := range m.GetLabel() {
				if l.GetValue() == label {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		if m.GetGauge() != nil {
			return m.GetGauge().GetValue()
		}
		return m.GetCounter().GetValue()
	}
	return -1
}

func TestCollector_ExportsLiveState(t *testing.T) {
	ctx := context.Background()
	offline := usecase.NewOfflineManager(
		usecase.NewCacheService(cachestore.NewMemoryStore()),
		usecase.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
	)
	t.Cleanup(func() { _ = offline.Close(ctx) })

	ok := func(ctx context.Context) (domainOffline.Payload, error) {
		return domainOffline.Payload{Domain: domainOffline.DomainDevice, Data: json.RawMessage(`{"a":1}`)}, nil
	}
	fail := func(ctx context.Context) (domainOffline.Payload, error) {
		return domainOffline.Payload{}, &pkgError.TransientFetchError{Op: "fetch", Err: errors.New("boom")}
	}
	offline.GetWithFallback(ctx, "device_data", ok)
	offline.GetWithFallback(ctx, "device_data", fail)

	health := usecase.NewHealthService(offline)
	health.PerformHealthCheck(ctx, false)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(offline, health, nil))
	fams := gather(t, reg)

	assert.Equal(t, 1.0, value(fams["azeight_connection_online"], ""))
	assert.Equal(t, 1.0, value(fams["azeight_connection_requests_total"], "success"))
	assert.Equal(t, 1.0, value(fams["azeight_connection_requests_total"], "failure"))
	assert.Equal(t, 1.0, value(fams["azeight_cache_entries"], ""))
	assert.Equal(t, 1.0, value(fams["azeight_cache_requests_total"], "hit"))
	assert.Equal(t, 1.0, value(fams["azeight_cache_valid"], ""))
	require.Contains(t, fams, "azeight_health_score")
	assert.Len(t, fams["azeight_health_score"].GetMetric(), 4)
	assert.NotContains(t, fams, "azeight_fetch_pool_jobs_total")
}

func TestCollector_NoReportNoHealthSeries(t *testing.T) {
	offline := usecase.NewOfflineManager(usecase.NewCacheService(cachestore.NewMemoryStore()))
	t.Cleanup(func() { _ = offline.Close(context.Background()) })

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(offline, usecase.NewHealthService(offline), nil))
	fams := gather(t, reg)

	assert.NotContains(t, fams, "azeight_health_score")
	assert.Equal(t, 0.0, value(fams["azeight_cache_valid"], ""))
}
