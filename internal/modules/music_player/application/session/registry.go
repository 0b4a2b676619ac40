package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
	"golang.org/x/sync/errgroup"
)

// Registry holds the live session of each guild.
type Registry struct {
	deps Dependencies

	mu       sync.Mutex
	sessions map[snowflake.ID]*Session
}

// NewRegistry creates an empty Registry whose sessions share deps.
func NewRegistry(deps Dependencies) *Registry {
	return &Registry{
		deps:     deps,
		sessions: make(map[snowflake.ID]*Session),
	}
}

// GetOrCreate returns the guild's session, creating one that joins
// voiceChannelID if none is live. The boolean reports whether it was created.
// An existing session adopts notificationChannelID for its status messages.
func (r *Registry) GetOrCreate(
	ctx context.Context,
	guildID, voiceChannelID, notificationChannelID snowflake.ID,
) (*Session, bool, error) {
	r.mu.Lock()
	if s, ok := r.sessions[guildID]; ok {
		r.mu.Unlock()
		s.SetNotificationChannelID(notificationChannelID)
		return s, false, nil
	}

	s := newSession(guildID, voiceChannelID, notificationChannelID, r.deps, r.remove)
	r.sessions[guildID] = s
	r.mu.Unlock()

	s.start()
	s.HandleConnectionEvent(domain.ConnectionEvent{Kind: domain.ConnectionEventSignalling})

	if err := r.deps.Voice.JoinChannel(ctx, guildID, voiceChannelID); err != nil {
		_ = s.Stop(context.WithoutCancel(ctx))
		return nil, false, fmt.Errorf("failed to join voice channel: %w", err)
	}

	slog.Info("created session",
		"guild", guildID,
		"session", s.ID().String(),
		"voice_channel", voiceChannelID,
	)
	return s, true, nil
}

// Get returns the live session of the guild, if any.
func (r *Registry) Get(guildID snowflake.ID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ShutdownAll destroys every live session concurrently and waits for each
// to finish.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range sessions {
		g.Go(func() error {
			if err := s.Stop(ctx); err != nil {
				return fmt.Errorf("failed to stop session for guild %d: %w", s.GuildID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// OnConnectionEvent routes a voice transport event to the guild's session.
func (r *Registry) OnConnectionEvent(guildID snowflake.ID, event domain.ConnectionEvent) {
	if s, ok := r.Get(guildID); ok {
		s.HandleConnectionEvent(event)
	}
}

// OnPlayerEvent routes an audio transport event to the guild's session.
func (r *Registry) OnPlayerEvent(guildID snowflake.ID, event domain.PlayerEvent) {
	if s, ok := r.Get(guildID); ok {
		s.HandlePlayerEvent(event)
	}
}

// remove drops s from the registry if it is still the guild's session.
func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.guildID] == s {
		delete(r.sessions, s.guildID)
	}
}

// Ensure Registry implements ports.TransportEventSink.
var _ ports.TransportEventSink = (*Registry)(nil)
