package discord

import (
	"github.com/bwmarrin/discordgo"
)

// VoiceEventForwarder receives the gateway voice events the audio node needs.
type VoiceEventForwarder interface {
	OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate)
	OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate)
}

// EventHandlers handles Discord gateway events for the music player.
type EventHandlers struct {
	voice VoiceEventForwarder
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(voice VoiceEventForwarder) *EventHandlers {
	return &EventHandlers{voice: voice}
}

// HandleVoiceStateUpdate forwards VoiceStateUpdate events.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if event.VoiceState == nil {
		return
	}
	h.voice.OnVoiceStateUpdate(event)
}

// HandleVoiceServerUpdate forwards VoiceServerUpdate events.
func (h *EventHandlers) HandleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	h.voice.OnVoiceServerUpdate(event)
}
