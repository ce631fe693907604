package observability

import (
	"strings"
	"testing"
	"time"
)

func TestCounterVecAccumulatesPerLabel(t *testing.T) {
	c := NewCounterVec("fab_test_total", "test", []string{"outcome"})
	c.Inc("crafted")
	c.Add(2, "crafted")
	c.Inc("failed")
	c.Add(-5, "crafted")

	if got := c.Value("crafted"); got != 3 {
		t.Fatalf("crafted = %v, want 3", got)
	}
	if got := c.Value("failed"); got != 1 {
		t.Fatalf("failed = %v, want 1", got)
	}
}

func TestWritePrometheusFormat(t *testing.T) {
	m := newMetrics()
	m.ObserveCraft("crafted", "INITIAL", 20*time.Millisecond, map[string]int{"Drum": 12}, 1)
	m.ObserveAggregateOperation("Segment.CommitCraft", "success", time.Millisecond)

	var b strings.Builder
	if err := m.WritePrometheus(&b); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		`fab_segments_total{outcome="crafted",type="INITIAL"} 1`,
		`fab_picks_total{instrument_type="Drum"} 12`,
		`fab_missing_content_total 1`,
		`fab_craft_duration_seconds_bucket{outcome="crafted",le="0.025"} 1`,
		`fab_craft_duration_seconds_bucket{outcome="crafted",le="+Inf"} 1`,
		`# TYPE fab_aggregate_operation_duration_seconds histogram`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCraft("crafted", "INITIAL", time.Second, nil, 0)
	m.IncWorkerTick("ok")
	m.ObserveAPI("GET", "/healthz", "200", time.Millisecond)
	if err := m.WritePrometheus(&strings.Builder{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}
