package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type uniqueSessions struct {
	counter prometheus.Gauge
	cache   map[string]struct{}
	mu      sync.Mutex
}

const sessionCountPerWeek = "sessions_count_per_week"

var totalUniqueSessionsPerWeekMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: cvAnalysis,
		Name:      sessionCountPerWeek,
		Help:      "metrics to record the number of distinct client sessions per week",
	},
)

// UniqueSessionsPerWeek counts the distinct sessions seen since the last Reset.
var UniqueSessionsPerWeek = &uniqueSessions{
	counter: totalUniqueSessionsPerWeekMetric,
	cache:   make(map[string]struct{}),
}

func (v *uniqueSessions) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cache = make(map[string]struct{})
	v.counter.Set(0)
}

func (v *uniqueSessions) Observe(sessionID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.cache[sessionID]; exists {
		return
	}

	v.cache[sessionID] = struct{}{}
	v.counter.Inc()
}

func (v *uniqueSessions) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.cache)
}
