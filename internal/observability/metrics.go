package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Relay counter names.
const (
	CounterEventsReceived   = "events_received"
	CounterEventsDuplicate  = "events_duplicate"
	CounterEventsDropped    = "events_dropped"
	CounterTicketsCreated   = "tickets_created"
	CounterTicketsResolved  = "tickets_resolved"
	CounterTicketsReopened  = "tickets_reopened"
	CounterTicketsClaimed   = "tickets_claimed"
	CounterMessagesRelayed  = "messages_relayed"
	CounterFilesRelayed     = "files_relayed"
	CounterFilesFailed      = "files_failed"
	CounterPingsFailed      = "pings_failed"
	CounterAIFailures       = "ai_failures"
	CounterHandlerPanics    = "handler_panics"
	CounterStoreAnomalies   = "store_anomalies"
	CounterUnauthorizedActs = "unauthorized_actions"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	relayCount   map[string]int64
	startedAt    time.Time
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	UptimeSeconds int64            `json:"uptimeSeconds"`
	Relay         map[string]int64 `json:"relay"`
	Requests      map[string]int64 `json:"requests"`
	Errors        map[string]int64 `json:"errors"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		relayCount:   make(map[string]int64),
		startedAt:    time.Now(),
	}
}

// Inc bumps a relay counter. Safe on a nil receiver.
func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relayCount[name]++
}

// Count returns the current value of a relay counter.
func (m *Metrics) Count(name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.relayCount[name]
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		Relay:         copyCounts(m.relayCount),
		Requests:      copyCounts(m.requestCount),
		Errors:        copyCounts(m.errorCount),
	}
}

// RelayCounterNames lists relay counters that have been touched, sorted.
func (s Snapshot) RelayCounterNames() []string {
	names := make([]string, 0, len(s.Relay))
	for k := range s.Relay {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
