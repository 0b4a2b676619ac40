package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// VoiceStateProvider defines the interface for getting Discord voice state information.
type VoiceStateProvider interface {
	// GetUserVoiceChannel returns the voice channel ID the user is currently in.
	// Returns 0 if the user is not in a voice channel.
	GetUserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)
}

// UserInfoProvider resolves the display identity of a guild member.
type UserInfoProvider interface {
	GetRequester(guildID, userID snowflake.ID) (domain.Requester, error)
}
