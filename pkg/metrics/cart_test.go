package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCartMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartMetrics(reg)

	m.IncMutation("add", "applied")
	m.IncMutation("add", "applied")
	m.IncMutation("update", "rejected")
	m.IncRollback("add")
	m.IncStaleDrop()
	m.IncCacheHit()
	m.IncCacheMiss()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cart_mutations_total", map[string]string{"op": "add", "outcome": "applied"}); err != nil {
		t.Fatalf("fetch mutations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected add/applied=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_rollbacks_total", map[string]string{"op": "add"}); err != nil {
		t.Fatalf("fetch rollbacks: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rollbacks=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_stale_responses_dropped_total", nil); err != nil {
		t.Fatalf("fetch stale drops: %v", err)
	} else if got != 1 {
		t.Fatalf("expected stale drops=1, got %f", got)
	}
}

func TestCartMetricsNilSafe(t *testing.T) {
	var m *CartMetrics
	m.IncMutation("add", "applied")
	m.IncRollback("add")
	m.IncStaleDrop()

	empty := NewCartMetrics(nil)
	empty.IncCacheHit()
	empty.IncCacheMiss()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchesLabels(metric, labels) {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %q with labels %v not found", name, labels)
}

func matchesLabels(metric *dto.Metric, labels map[string]string) bool {
	for key, want := range labels {
		found := false
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == key && pair.GetValue() == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
