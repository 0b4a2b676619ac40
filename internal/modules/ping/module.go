package ping

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrplay/internal/bot"
	"github.com/sglre6355/sgrplay/internal/modules/ping/application"
	"github.com/sglre6355/sgrplay/internal/modules/ping/presentation"
)

func init() {
	bot.Register(&PingModule{})
}

// PingModule provides the /ping liveness check.
type PingModule struct {
	pingHandler *presentation.PingHandler
}

// Name returns the module name.
func (m *PingModule) Name() string {
	return "ping"
}

// Commands returns the slash commands for this module.
func (m *PingModule) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check that the bot is alive",
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *PingModule) CommandHandlers() map[string]bot.InteractionHandler {
	if m.pingHandler == nil {
		return map[string]bot.InteractionHandler{}
	}
	return map[string]bot.InteractionHandler{
		"ping": m.pingHandler.Handle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *PingModule) EventHandlers() []bot.EventHandler {
	return nil
}

// Init initializes the module.
func (m *PingModule) Init(deps bot.ModuleDependencies) error {
	var latency application.LatencySource
	if deps.Session != nil {
		latency = deps.Session
	}
	m.pingHandler = presentation.NewPingHandler(application.NewPingInteractor(latency))
	return nil
}

// Shutdown cleans up module resources.
func (m *PingModule) Shutdown() error {
	return nil
}
