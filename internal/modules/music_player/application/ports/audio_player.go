package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// AudioPlayer defines the interface for audio playback operations.
type AudioPlayer interface {
	// Play binds the prepared resource to the guild's player.
	Play(ctx context.Context, guildID snowflake.ID, resource domain.Resource) error

	// Stop stops the current resource. A forced stop also tears down the
	// player so no further events are delivered for the departing resource.
	Stop(ctx context.Context, guildID snowflake.ID, force bool) error
}
