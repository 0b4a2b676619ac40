package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VoiceConnection defines the interface for voice channel connection operations.
// Lifecycle changes are reported asynchronously through a TransportEventSink.
type VoiceConnection interface {
	// JoinChannel starts connecting the bot to the specified voice channel.
	JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error

	// Rejoin repeats the join handshake for a dropped connection.
	Rejoin(ctx context.Context, guildID, channelID snowflake.ID) error

	// LeaveChannel disconnects the bot from the voice channel and releases the player.
	LeaveChannel(ctx context.Context, guildID snowflake.ID) error
}
