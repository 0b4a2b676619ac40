package session

import (
	"time"

	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// Timings holds the deadlines a session enforces.
type Timings struct {
	ReadyTimeout      time.Duration
	RecoveryWindow    time.Duration
	RejoinBackoffUnit time.Duration

	// PrepareTimeout bounds one resource resolution.
	PrepareTimeout time.Duration
	// TransportTimeout bounds each call into the voice or audio transport.
	TransportTimeout time.Duration
}

// DefaultTimings returns the production deadlines.
func DefaultTimings() Timings {
	return Timings{
		ReadyTimeout:      domain.ReadyTimeout,
		RecoveryWindow:    domain.RecoveryWindow,
		RejoinBackoffUnit: domain.RejoinBackoffUnit,
		PrepareTimeout:    30 * time.Second,
		TransportTimeout:  10 * time.Second,
	}
}
