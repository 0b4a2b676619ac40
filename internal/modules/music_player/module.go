package music_player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/sglre6355/sgrplay/internal/bot"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/session"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/presentation/discord"
)

// shutdownTimeout bounds tearing down every live session.
const shutdownTimeout = 10 * time.Second

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*MusicPlayerModule)(nil)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	eventHandlers   *discord.EventHandlers

	lavalinkAdapter *infrastructure.LavalinkAdapter
	registry        *session.Registry
	sweeper         *infrastructure.CacheSweeper
	redisCache      *infrastructure.RedisCache
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	if m.commandHandlers == nil {
		return map[string]bot.InteractionHandler{}
	}

	return map[string]bot.InteractionHandler{
		"play":    m.commandHandlers.HandlePlay,
		"skip":    m.commandHandlers.HandleSkip,
		"stop":    m.commandHandlers.HandleStop,
		"leave":   m.commandHandlers.HandleLeave,
		"np":      m.commandHandlers.HandleNowPlaying,
		"queue":   m.commandHandlers.HandleQueue,
		"remove":  m.commandHandlers.HandleRemove,
		"clear":   m.commandHandlers.HandleClear,
		"shuffle": m.commandHandlers.HandleShuffle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			if m.eventHandlers != nil {
				m.eventHandlers.HandleVoiceServerUpdate(s, event)
			}
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			if m.eventHandlers != nil {
				m.eventHandlers.HandleVoiceStateUpdate(s, event)
			}
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.handleInteractionCreate(s, i)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		slog.Warn("music_player module initialized without session, playback disabled")
		return nil
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}

	ctx := context.Background()

	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(ctx, deps.Session, infrastructure.LavalinkConfig{
		Address:  m.config.LavalinkAddress,
		Password: m.config.LavalinkPassword,
		Secure:   m.config.LavalinkSecure,
	})
	if err != nil {
		return err
	}
	m.lavalinkAdapter = lavalinkAdapter

	cache, err := m.newMetadataCache(ctx)
	if err != nil {
		lavalinkAdapter.Close()
		return err
	}

	source := infrastructure.NewSpotifyMetadataSource(ctx, infrastructure.SpotifyConfig{
		ClientID:     m.config.SpotifyClientID,
		ClientSecret: m.config.SpotifyClientSecret,
	})
	notifier := infrastructure.NewNotifier(deps.Session)
	resolver := usecases.NewTrackResolver(source, cache, lavalinkAdapter, m.config.DownloaderURL)

	timings := session.DefaultTimings()
	timings.ReadyTimeout = m.config.ReadyTimeout

	m.registry = session.NewRegistry(session.Dependencies{
		Voice:     lavalinkAdapter,
		Player:    lavalinkAdapter,
		Resources: resolver,
		Messages:  notifier,
		Timings:   timings,
	})
	lavalinkAdapter.SetEventSink(m.registry)

	playback := usecases.NewPlaybackService(
		m.registry,
		resolver,
		infrastructure.NewVoiceStateProvider(deps.Session.State),
		infrastructure.NewDiscordUserInfoProvider(deps.Session),
		notifier,
		m.config.ReadyTimeout,
	)

	m.commandHandlers = discord.NewCommandHandlers(playback)
	m.autocomplete = discord.NewAutocompleteHandler(usecases.NewAutocompleteService(resolver, playback))
	m.eventHandlers = discord.NewEventHandlers(lavalinkAdapter)

	slog.Info("music_player module initialized",
		"lavalink", m.config.LavalinkAddress,
		"redis_cache", m.redisCache != nil,
	)

	return nil
}

// newMetadataCache picks Redis when configured, otherwise an in-memory cache
// swept on a cron schedule.
func (m *MusicPlayerModule) newMetadataCache(ctx context.Context) (ports.MetadataCache, error) {
	if m.config.RedisURL != "" {
		redisCache, err := infrastructure.NewRedisCache(m.config.RedisURL, m.config.MetadataCacheTTL)
		if err != nil {
			return nil, err
		}
		if err := redisCache.Ping(ctx); err != nil {
			_ = redisCache.Close()
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		m.redisCache = redisCache
		return redisCache, nil
	}

	memoryCache := infrastructure.NewMemoryCache(m.config.MetadataCacheTTL)
	sweeper, err := infrastructure.NewCacheSweeper(memoryCache, m.config.CacheSweepSchedule)
	if err != nil {
		return nil, err
	}
	sweeper.Start()
	m.sweeper = sweeper
	return memoryCache, nil
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	var errs []error

	// Sessions go first so they can still reach the audio node
	if m.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := m.registry.ShutdownAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if m.sweeper != nil {
		m.sweeper.Stop()
	}

	if m.redisCache != nil {
		if err := m.redisCache.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}

	return errors.Join(errs...)
}

// handleInteractionCreate routes autocomplete requests. Commands are routed by the bot.
func (m *MusicPlayerModule) handleInteractionCreate(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete || m.autocomplete == nil {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "play":
		m.autocomplete.HandlePlay(s, i)
	case "remove":
		m.autocomplete.HandleRemove(s, i)
	}
}
