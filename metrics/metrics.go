// Package metrics aggregates operation counts and response-time statistics
// across all bus transactions. Every field is updated with a single atomic
// operation so concurrent workers never contend on a global lock.
package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// Metrics is an immutable snapshot of the collector.
type Metrics struct {
	TotalReads     uint64
	TotalWrites    uint64
	ErrorsInjected uint64
	Timeouts       uint64

	AvgResponseMicros float64
	MinResponseMicros uint64
	MaxResponseMicros uint64
}

// TotalOps returns the combined read and write count.
func (m Metrics) TotalOps() uint64 {
	return m.TotalReads + m.TotalWrites
}

// ErrorRate returns the fraction of operations that failed, 0 when no
// operation was recorded.
func (m Metrics) ErrorRate() float64 {
	ops := m.TotalOps()
	if ops == 0 {
		return 0
	}
	return float64(m.ErrorsInjected) / float64(ops)
}

// Throughput returns operations per second over the given window.
func (m Metrics) Throughput(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(m.TotalOps()) / elapsed.Seconds()
}

// Collector accumulates bus operation outcomes.
type Collector struct {
	reads    atomic.Uint64
	writes   atomic.Uint64
	errors   atomic.Uint64
	timeouts atomic.Uint64

	samples     atomic.Uint64
	totalMicros atomic.Uint64
	minMicros   atomic.Uint64
	maxMicros   atomic.Uint64
}

// NewCollector returns a collector ready for use.
func NewCollector() *Collector {
	c := &Collector{}
	c.minMicros.Store(math.MaxUint64)
	return c
}

// AddReads records n completed read accesses.
func (c *Collector) AddReads(n int) {
	c.reads.Add(uint64(n))
}

// AddWrites records n completed write accesses.
func (c *Collector) AddWrites(n int) {
	c.writes.Add(uint64(n))
}

// AddTimeout records one simulated timeout.
func (c *Collector) AddTimeout() {
	c.timeouts.Add(1)
}

// Observe records the elapsed wall time of one transaction and whether it
// failed.
func (c *Collector) Observe(elapsed time.Duration, failed bool) {
	micros := uint64(elapsed.Microseconds())
	c.samples.Add(1)
	c.totalMicros.Add(micros)
	for {
		cur := c.minMicros.Load()
		if micros >= cur || c.minMicros.CompareAndSwap(cur, micros) {
			break
		}
	}
	for {
		cur := c.maxMicros.Load()
		if micros <= cur || c.maxMicros.CompareAndSwap(cur, micros) {
			break
		}
	}
	if failed {
		c.errors.Add(1)
	}
}

// Snapshot returns the current counters. Counters updated concurrently with
// the snapshot may or may not be included; each field is individually
// consistent.
func (c *Collector) Snapshot() Metrics {
	m := Metrics{
		TotalReads:        c.reads.Load(),
		TotalWrites:       c.writes.Load(),
		ErrorsInjected:    c.errors.Load(),
		Timeouts:          c.timeouts.Load(),
		MinResponseMicros: c.minMicros.Load(),
		MaxResponseMicros: c.maxMicros.Load(),
	}
	if samples := c.samples.Load(); samples > 0 {
		m.AvgResponseMicros = float64(c.totalMicros.Load()) / float64(samples)
	}
	if m.MinResponseMicros == math.MaxUint64 {
		m.MinResponseMicros = 0
	}
	return m
}

// Reset clears all counters, typically at the start of a scenario run.
func (c *Collector) Reset() {
	c.reads.Store(0)
	c.writes.Store(0)
	c.errors.Store(0)
	c.timeouts.Store(0)
	c.samples.Store(0)
	c.totalMicros.Store(0)
	c.minMicros.Store(math.MaxUint64)
	c.maxMicros.Store(0)
}
