package collector

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/routedex/internal/domain/routing"
)

func record(strategy routing.Strategy, latency time.Duration, cost float64, route string) routing.Record {
	return routing.Record{
		QueryID:   "q",
		Strategy:  strategy,
		Latency:   latency,
		CostUSD:   cost,
		CostBasis: routing.CostSimulated,
		Route:     route,
	}
}

func TestSnapshot_Empty(t *testing.T) {
	c := New()

	stats := c.Snapshot("")
	if stats.Count != 0 {
		t.Errorf("count = %d, want 0", stats.Count)
	}
	if stats.TotalCostUSD != 0 {
		t.Errorf("total cost = %f, want 0", stats.TotalCostUSD)
	}
	if stats.Accuracy != nil {
		t.Errorf("accuracy should be nil with no records")
	}
	if len(stats.RouteDistribution) != 0 {
		t.Errorf("route distribution should be empty")
	}
}

func TestSnapshot_MeanLatencyExact(t *testing.T) {
	c := New()
	// Binary-exact values: mean of four identical 10ms latencies is exactly 10.
	for i := 0; i < 4; i++ {
		c.Record(record(routing.StrategySemantic, 10*time.Millisecond, 0.00001, "general_conversation"))
	}

	stats := c.Snapshot("")
	if stats.Count != 4 {
		t.Fatalf("count = %d, want 4", stats.Count)
	}
	if stats.Latency.MeanMS != 10 {
		t.Errorf("mean latency = %f, want exactly 10", stats.Latency.MeanMS)
	}
	if stats.Latency.MinMS != 10 || stats.Latency.MaxMS != 10 {
		t.Errorf("min/max = %f/%f, want 10/10", stats.Latency.MinMS, stats.Latency.MaxMS)
	}
	if stats.Latency.StdDevMS != 0 {
		t.Errorf("stddev = %f, want 0", stats.Latency.StdDevMS)
	}
}

func TestSnapshot_CostTotals(t *testing.T) {
	c := New()
	c.Record(record(routing.StrategyComplexity, time.Millisecond, 0.002, "strong"))
	c.Record(record(routing.StrategyComplexity, time.Millisecond, 0.0001, "weak"))
	c.Record(record(routing.StrategyComplexity, time.Millisecond, 0.0001, "weak"))

	stats := c.Snapshot(routing.StrategyComplexity)
	if stats.Count != 3 {
		t.Fatalf("count = %d, want 3", stats.Count)
	}
	// Runtime accumulation rounds differently than the constant-folded sum.
	want := 0.0022
	if math.Abs(stats.TotalCostUSD-want) > 1e-12 {
		t.Errorf("total cost = %g, want %g", stats.TotalCostUSD, want)
	}
	if stats.RouteDistribution["strong"] != 1 || stats.RouteDistribution["weak"] != 2 {
		t.Errorf("route distribution = %v", stats.RouteDistribution)
	}
	if stats.CostBasis["simulated"] != 3 {
		t.Errorf("cost basis = %v", stats.CostBasis)
	}
}

func TestSnapshot_StrategyFilter(t *testing.T) {
	c := New()
	c.Record(record(routing.StrategySemantic, time.Millisecond, 0.00001, "customer_service"))
	c.Record(record(routing.StrategyComplexity, time.Millisecond, 0.0001, "weak"))

	if got := c.Snapshot(routing.StrategySemantic).Count; got != 1 {
		t.Errorf("semantic count = %d, want 1", got)
	}
	if got := c.Snapshot(routing.StrategyComplexity).Count; got != 1 {
		t.Errorf("complexity count = %d, want 1", got)
	}
	if got := c.Snapshot("").Count; got != 2 {
		t.Errorf("all count = %d, want 2", got)
	}
}

func TestSnapshot_AccuracyOverLabeledOnly(t *testing.T) {
	c := New()
	// 5 labeled (3 correct), 5 unlabeled. Accuracy must be 3/5, not 3/10.
	for i := 0; i < 3; i++ {
		rec := record(routing.StrategySemantic, time.Millisecond, 0, "customer_service")
		rec.Label = "customer_service"
		rec.Labeled = true
		c.Record(rec)
	}
	for i := 0; i < 2; i++ {
		rec := record(routing.StrategySemantic, time.Millisecond, 0, "customer_service")
		rec.Label = "business_analytics"
		rec.Labeled = true
		c.Record(rec)
	}
	for i := 0; i < 5; i++ {
		c.Record(record(routing.StrategySemantic, time.Millisecond, 0, "customer_service"))
	}

	stats := c.Snapshot("")
	if stats.LabeledCount != 5 {
		t.Fatalf("labeled count = %d, want 5", stats.LabeledCount)
	}
	if stats.CorrectCount != 3 {
		t.Fatalf("correct count = %d, want 3", stats.CorrectCount)
	}
	if stats.Accuracy == nil {
		t.Fatal("accuracy is nil with labeled records present")
	}
	if *stats.Accuracy != 0.6 {
		t.Errorf("accuracy = %f, want 0.6", *stats.Accuracy)
	}
}

func TestSnapshot_NoLabels_NilAccuracy(t *testing.T) {
	c := New()
	c.Record(record(routing.StrategySemantic, time.Millisecond, 0, "general_conversation"))

	if stats := c.Snapshot(""); stats.Accuracy != nil {
		t.Errorf("accuracy should be nil when nothing is labeled, got %f", *stats.Accuracy)
	}
}

func TestReset(t *testing.T) {
	c := New()
	c.Record(record(routing.StrategySemantic, time.Millisecond, 0.1, "x"))
	c.Record(record(routing.StrategyComplexity, time.Millisecond, 0.1, "weak"))

	c.Reset()

	if c.Len() != 0 {
		t.Errorf("len = %d after reset, want 0", c.Len())
	}
	if stats := c.Snapshot(""); stats.Count != 0 {
		t.Errorf("count = %d after reset, want 0", stats.Count)
	}
}

func TestRecord_ConcurrentAppends(t *testing.T) {
	c := New()

	const goroutines = 8
	const perGoroutine = 100

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				c.Record(record(routing.StrategySemantic, time.Millisecond, 0.00001, "general_conversation"))
			}
		}()
	}
	wg.Wait()

	if c.Len() != goroutines*perGoroutine {
		t.Errorf("len = %d, want %d", c.Len(), goroutines*perGoroutine)
	}
}

func TestSnapshot_Percentiles(t *testing.T) {
	c := New()
	// 1..100 ms
	for i := 1; i <= 100; i++ {
		c.Record(record(routing.StrategySemantic, time.Duration(i)*time.Millisecond, 0, "x"))
	}

	stats := c.Snapshot("")
	lat := stats.Latency
	if lat.MinMS != 1 || lat.MaxMS != 100 {
		t.Errorf("min/max = %f/%f, want 1/100", lat.MinMS, lat.MaxMS)
	}
	if lat.MedianMS < 49 || lat.MedianMS > 51 {
		t.Errorf("median = %f, want ~50", lat.MedianMS)
	}
	if lat.P95MS < 94 || lat.P95MS > 96 {
		t.Errorf("p95 = %f, want ~95", lat.P95MS)
	}
	if lat.P99MS < 98 || lat.P99MS > 100 {
		t.Errorf("p99 = %f, want ~99", lat.P99MS)
	}
}
