package ports

import (
	"time"

	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// NowPlayingInfo contains information for the "Now Playing" notification.
type NowPlayingInfo struct {
	Metadata   *domain.FullMetadata
	Requester  domain.Requester
	EnqueuedAt time.Time
}
