package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()
	c.AddReads(2)
	c.AddWrites(1)
	c.Observe(10*time.Microsecond, false)
	c.Observe(30*time.Microsecond, true)
	c.Observe(20*time.Microsecond, false)

	m := c.Snapshot()
	assert.Equal(t, uint64(2), m.TotalReads)
	assert.Equal(t, uint64(1), m.TotalWrites)
	assert.Equal(t, uint64(3), m.TotalOps())
	assert.Equal(t, uint64(1), m.ErrorsInjected)
	assert.Equal(t, uint64(10), m.MinResponseMicros)
	assert.Equal(t, uint64(30), m.MaxResponseMicros)
	assert.InDelta(t, 20.0, m.AvgResponseMicros, 0.001)
	assert.InDelta(t, 1.0/3.0, m.ErrorRate(), 0.001)
}

func TestCollector_EmptySnapshot(t *testing.T) {
	c := NewCollector()
	m := c.Snapshot()
	assert.Zero(t, m.TotalOps())
	assert.Zero(t, m.MinResponseMicros)
	assert.Zero(t, m.MaxResponseMicros)
	assert.Zero(t, m.AvgResponseMicros)
	assert.Zero(t, m.ErrorRate())
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	c.AddReads(5)
	c.Observe(time.Millisecond, true)
	c.AddTimeout()
	c.Reset()

	m := c.Snapshot()
	assert.Zero(t, m.TotalReads)
	assert.Zero(t, m.ErrorsInjected)
	assert.Zero(t, m.Timeouts)
	assert.Zero(t, m.MaxResponseMicros)
}

func TestCollector_ConcurrentCountersConsistent(t *testing.T) {
	c := NewCollector()
	const workers = 8
	const perWorker = 10000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c.AddReads(1)
				c.Observe(time.Microsecond, i%10 == 0)
			}
		}()
	}
	wg.Wait()

	m := c.Snapshot()
	assert.Equal(t, uint64(workers*perWorker), m.TotalReads)
	assert.Equal(t, uint64(workers*perWorker/10), m.ErrorsInjected)
}

func TestMetrics_Throughput(t *testing.T) {
	m := Metrics{TotalReads: 500, TotalWrites: 500}
	assert.InDelta(t, 2000.0, m.Throughput(500*time.Millisecond), 0.001)
	assert.Zero(t, m.Throughput(0))
}
