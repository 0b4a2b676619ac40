package infrastructure

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
)

var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)

// VoiceStateProvider answers voice channel lookups from the gateway state cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a VoiceStateProvider reading the given state.
func NewVoiceStateProvider(state *discordgo.State) *VoiceStateProvider {
	return &VoiceStateProvider{state: state}
}

// GetUserVoiceChannel returns the voice channel the user sits in, or 0 when
// the cache holds no channel for them. An uncached guild counts as not in voice.
func (v *VoiceStateProvider) GetUserVoiceChannel(
	guildID, userID snowflake.ID,
) (snowflake.ID, error) {
	vs, err := v.state.VoiceState(guildID.String(), userID.String())
	switch {
	case errors.Is(err, discordgo.ErrStateNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to read voice state: %w", err)
	case vs.ChannelID == "":
		return 0, nil
	}

	channelID, err := snowflake.Parse(vs.ChannelID)
	if err != nil {
		return 0, fmt.Errorf("invalid voice channel id %q: %w", vs.ChannelID, err)
	}
	return channelID, nil
}
