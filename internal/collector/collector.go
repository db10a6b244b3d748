// Package collector accumulates per-query routing records and derives
// aggregate statistics on demand.
package collector

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/kailas-cloud/routedex/internal/domain/routing"
)

// LatencyStats summarizes the latency distribution in milliseconds.
type LatencyStats struct {
	MeanMS   float64 `json:"mean_ms"`
	MedianMS float64 `json:"median_ms"`
	StdDevMS float64 `json:"stddev_ms"`
	MinMS    float64 `json:"min_ms"`
	MaxMS    float64 `json:"max_ms"`
	P95MS    float64 `json:"p95_ms"`
	P99MS    float64 `json:"p99_ms"`
}

// AggregateStats is derived from the recorded sequence, never stored.
// A zero Count means no records matched the filter; the remaining fields
// are then zero values, not errors.
type AggregateStats struct {
	Count             int            `json:"count"`
	Latency           LatencyStats   `json:"latency"`
	TotalCostUSD      float64        `json:"total_cost_usd"`
	MeanCostUSD       float64        `json:"mean_cost_usd"`
	RouteDistribution map[string]int `json:"route_distribution"`
	CostBasis         map[string]int `json:"cost_basis"`
	LabeledCount      int            `json:"labeled_count"`
	CorrectCount      int            `json:"correct_count"`
	// Accuracy is correct/labeled over labeled records only; nil when no
	// record carries a ground-truth label.
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// Collector is the process-wide accumulator of routing records. Appends and
// snapshot reads are mutually exclusive so a partial record is never
// observed.
type Collector struct {
	mu      sync.Mutex
	records []routing.Record
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{}
}

// Record appends in the order received. Records are never reordered,
// deduplicated, or mutated after append.
func (c *Collector) Record(rec routing.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

// Len returns the number of recorded entries.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Reset clears all records. Intended only between independent comparison runs.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
}

// Snapshot computes aggregate statistics over the currently recorded
// sequence, optionally filtered by strategy (empty = all). Pure: the
// recorded sequence is copied under the lock and aggregated outside it.
func (c *Collector) Snapshot(strategy routing.Strategy) AggregateStats {
	c.mu.Lock()
	matched := make([]routing.Record, 0, len(c.records))
	for _, rec := range c.records {
		if strategy == "" || rec.Strategy == strategy {
			matched = append(matched, rec)
		}
	}
	c.mu.Unlock()

	return aggregate(matched)
}

func aggregate(records []routing.Record) AggregateStats {
	stats := AggregateStats{
		RouteDistribution: make(map[string]int),
		CostBasis:         make(map[string]int),
	}
	if len(records) == 0 {
		return stats
	}

	latencies := make([]float64, len(records))
	for i, rec := range records {
		latencies[i] = float64(rec.Latency.Nanoseconds()) / 1e6

		stats.TotalCostUSD += rec.CostUSD
		stats.RouteDistribution[rec.Route]++
		stats.CostBasis[string(rec.CostBasis)]++
		if rec.Labeled {
			stats.LabeledCount++
			if rec.Correct() {
				stats.CorrectCount++
			}
		}
	}

	stats.Count = len(records)
	stats.MeanCostUSD = stats.TotalCostUSD / float64(len(records))
	stats.Latency = latencyStats(latencies)

	if stats.LabeledCount > 0 {
		acc := float64(stats.CorrectCount) / float64(stats.LabeledCount)
		stats.Accuracy = &acc
	}

	return stats
}

func latencyStats(latencies []float64) LatencyStats {
	sorted := make([]float64, len(latencies))
	copy(sorted, latencies)
	sort.Float64s(sorted)

	ls := LatencyStats{
		MeanMS:   stat.Mean(latencies, nil),
		MedianMS: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		MinMS:    sorted[0],
		MaxMS:    sorted[len(sorted)-1],
		P95MS:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		P99MS:    stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
	if len(latencies) > 1 {
		ls.StdDevMS = stat.StdDev(latencies, nil)
	}
	return ls
}
