package models

import "time"

// SystemMetrics is a lightweight snapshot of process counters served by the health endpoint.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	DocumentWrites           uint64    `json:"document_writes"`
	WriteConflicts           uint64    `json:"write_conflicts"`
	Transitions              uint64    `json:"transitions"`
	CompletedInteractions    uint64    `json:"completed_interactions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
