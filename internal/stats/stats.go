// Package stats keeps rolling-window latency percentiles per operation.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
	fields     int
	failed     int
}

// Snapshot is a point-in-time aggregate of one operation's samples.
type Snapshot struct {
	Count        int     `json:"count"`
	MinMs        int64   `json:"min_ms"`
	MaxMs        int64   `json:"max_ms"`
	AvgMs        float64 `json:"avg_ms"`
	P50Ms        float64 `json:"p50_ms"`
	P95Ms        float64 `json:"p95_ms"`
	P99Ms        float64 `json:"p99_ms"`
	Fields       int     `json:"fields"`
	FieldsFailed int     `json:"fields_failed"`
}

// Ops tracks recent extract/inject calls within a rolling window, keyed by
// operation name.
type Ops struct {
	mu      sync.Mutex
	samples map[string][]sample
	maxAge  time.Duration
}

func New(maxAge time.Duration) *Ops {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Ops{
		samples: make(map[string][]sample),
		maxAge:  maxAge,
	}
}

// Record adds one call of op that took d and touched fields mapped fields,
// failed of which did not resolve.
func (s *Ops) Record(op string, d time.Duration, fields, failed int) {
	durationMs := d.Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(op, now)
	s.samples[op] = append(s.samples[op], sample{
		timestamp:  now,
		durationMs: durationMs,
		fields:     fields,
		failed:     failed,
	})
}

// Snapshot aggregates every operation seen within the window.
func (s *Ops) Snapshot() map[string]Snapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Snapshot, len(s.samples))
	for op := range s.samples {
		s.pruneLocked(op, now)
		out[op] = aggregate(s.samples[op])
	}
	return out
}

func aggregate(samples []sample) Snapshot {
	if len(samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(samples))
	var sum int64
	var snap Snapshot
	for _, sm := range samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		snap.Fields += sm.fields
		snap.FieldsFailed += sm.failed
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *Ops) pruneLocked(op string, now time.Time) {
	cutoff := now.Add(-s.maxAge)
	kept := s.samples[op][:0]
	for _, sm := range s.samples[op] {
		if !sm.timestamp.Before(cutoff) {
			kept = append(kept, sm)
		}
	}
	s.samples[op] = kept
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
