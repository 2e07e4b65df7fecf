package models

import "time"

// SweepRunEvent records the outcome of one sweep pass, broadcast to any
// subscriber watching operational health (e.g. the /sweep-events SSE endpoint)
// independent of what the Prometheus counters show in aggregate.
type SweepRunEvent struct {
	StartedAt time.Time `json:"started_at"`
	Reversed  int       `json:"reversed"`
	Err       string    `json:"error,omitempty"`
}
