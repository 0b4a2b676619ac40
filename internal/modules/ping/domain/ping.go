package domain

import (
	"fmt"
	"time"
)

// PingResult is the outcome of a liveness check.
type PingResult struct {
	// Latency is the last gateway heartbeat round trip, zero until one completes.
	Latency   time.Duration
	CheckedAt time.Time
}

// NewPingResult creates a PingResult stamped with the current time.
func NewPingResult(latency time.Duration) *PingResult {
	return &PingResult{
		Latency:   max(latency, 0),
		CheckedAt: time.Now(),
	}
}

// Message renders the reply shown to the user.
func (r *PingResult) Message() string {
	if r.Latency == 0 {
		return "Pong!"
	}
	return fmt.Sprintf("Pong! (%dms)", r.Latency.Milliseconds())
}
