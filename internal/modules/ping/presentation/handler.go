package presentation

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrplay/internal/bot"
	"github.com/sglre6355/sgrplay/internal/modules/ping/application"
)

// PingHandler handles the /ping command.
type PingHandler struct {
	interactor *application.PingInteractor
}

// NewPingHandler creates a new PingHandler.
func NewPingHandler(interactor *application.PingInteractor) *PingHandler {
	return &PingHandler{interactor: interactor}
}

// Handle replies with the gateway latency, visible only to the caller.
func (h *PingHandler) Handle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	result := h.interactor.Execute()

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: result.Message(),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
