package utils

import (
	"sync"
	"time"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount uint64
	errorCount   uint64
	deniedCount  uint64

	// Maps operation name to list of latencies in nanoseconds
	operationTimes map[string][]int64

	systemStartTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operationTimes:  make(map[string][]int64),
		systemStartTime: time.Now(),
	}
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.requestCount++
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
}

// IncrementDenied counts requests turned away by admission control.
func (mc *MetricsCollector) IncrementDenied() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.deniedCount++
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.operationTimes[operationName]; !exists {
		mc.operationTimes[operationName] = make([]int64, 0)
	}
	mc.operationTimes[operationName] = append(
		mc.operationTimes[operationName],
		duration.Nanoseconds(),
	)
}

// Snapshot is a point-in-time view of the collected metrics, exposed by the
// health endpoint.
type MetricsSnapshot struct {
	Uptime           time.Duration    `json:"uptimeNs"`
	RequestCount     uint64           `json:"requestCount"`
	ErrorCount       uint64           `json:"errorCount"`
	DeniedCount      uint64           `json:"deniedCount"`
	AverageLatencyNs map[string]int64 `json:"averageLatencyNs"`
}

func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	averages := make(map[string]int64, len(mc.operationTimes))
	for op, samples := range mc.operationTimes {
		if len(samples) == 0 {
			continue
		}
		var total int64
		for _, ns := range samples {
			total += ns
		}
		averages[op] = total / int64(len(samples))
	}

	return MetricsSnapshot{
		Uptime:           time.Since(mc.systemStartTime),
		RequestCount:     mc.requestCount,
		ErrorCount:       mc.errorCount,
		DeniedCount:      mc.deniedCount,
		AverageLatencyNs: averages,
	}
}
