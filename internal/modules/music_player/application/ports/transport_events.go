package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// TransportEventSink receives connection and player events from the
// transport adapters and routes them to the owning session.
type TransportEventSink interface {
	OnConnectionEvent(guildID snowflake.ID, event domain.ConnectionEvent)
	OnPlayerEvent(guildID snowflake.ID, event domain.PlayerEvent)
}
