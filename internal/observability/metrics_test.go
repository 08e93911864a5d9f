package observability

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Inc(CounterEventsReceived)
		}()
	}
	wg.Wait()
	m.Inc(CounterTicketsCreated)
	m.RecordRequest("/health/live", "GET", 200, time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, int64(20), snap.Relay[CounterEventsReceived])
	assert.Equal(t, []string{CounterEventsReceived, CounterTicketsCreated}, snap.RelayCounterNames())
	assert.Equal(t, int64(1), snap.Requests["/health/live|GET|200"])
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(CounterEventsReceived)
	assert.Equal(t, int64(0), m.Count(CounterEventsReceived))
}
