package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/tokenauth"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[tokenauth.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] || names[def.Name] {
			t.Fatalf("duplicate definition %+v", def)
		}
		seen[def.ID] = true
		names[def.Name] = true
		if !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %s must end in _total", def.Name)
		}
	}

	snap := tokenauth.NewMetrics(tokenauth.MetricsConfig{Enabled: true}).Snapshot()
	for id := range snap.Counters {
		if !seen[id] {
			t.Fatalf("counter %d has no exporter definition", id)
		}
	}
}

func TestBucketsShape(t *testing.T) {
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatal("suffixes must cover the finite bounds plus +Inf")
	}
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2}))
	want := [8]uint64{1, 1, 3, 3, 3, 3, 3, 3}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
