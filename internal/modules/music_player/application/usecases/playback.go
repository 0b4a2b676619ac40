package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/session"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// notificationTimeout bounds the metadata fetch behind a "Now Playing" message.
const notificationTimeout = 10 * time.Second

// PlayInput contains the input for the Play use case.
type PlayInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	Query                 string
}

// PlayOutput contains the result of the Play use case.
type PlayOutput struct {
	Track    *domain.Track
	Position int
	Joined   bool
}

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	SkippedTrack *domain.Track
}

// StopInput contains the input for the Stop and Leave use cases.
type StopInput struct {
	GuildID snowflake.ID
}

// NowPlayingInput contains the input for the NowPlaying use case.
type NowPlayingInput struct {
	GuildID snowflake.ID
}

// NowPlayingOutput contains the result of the NowPlaying use case.
type NowPlayingOutput struct {
	Track    *domain.Track
	Metadata *domain.FullMetadata
	Paused   bool
}

// PlaybackService handles playback operations.
type PlaybackService struct {
	registry     *session.Registry
	resolver     *TrackResolver
	voiceState   ports.VoiceStateProvider
	userInfo     ports.UserInfoProvider
	notifier     ports.NotificationSender
	readyTimeout time.Duration
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(
	registry *session.Registry,
	resolver *TrackResolver,
	voiceState ports.VoiceStateProvider,
	userInfo ports.UserInfoProvider,
	notifier ports.NotificationSender,
	readyTimeout time.Duration,
) *PlaybackService {
	return &PlaybackService{
		registry:     registry,
		resolver:     resolver,
		voiceState:   voiceState,
		userInfo:     userInfo,
		notifier:     notifier,
		readyTimeout: readyTimeout,
	}
}

// Play resolves the query to a track and enqueues it, joining the user's
// voice channel first if the guild has no session.
func (p *PlaybackService) Play(ctx context.Context, input PlayInput) (*PlayOutput, error) {
	ref := domain.ParseTrackReference(input.Query)
	if !ref.IsValid() {
		return nil, ErrNoResults
	}

	voiceChannelID, err := p.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
	if err != nil {
		return nil, err
	}
	if voiceChannelID == 0 {
		return nil, ErrUserNotInVoice
	}

	metadata, err := p.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}

	requester, err := p.userInfo.GetRequester(input.GuildID, input.UserID)
	if err != nil {
		slog.Warn("failed to get requester info", "user", input.UserID, "error", err)
		requester = domain.Requester{ID: input.UserID}
	}

	s, created, err := p.readySession(ctx, input.GuildID, voiceChannelID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	var track *domain.Track
	track = domain.NewTrack(metadata.ID, requester, metadata, p.trackCallbacks(s, func() *domain.Track {
		return track
	}))

	position, err := s.Enqueue(ctx, track)
	if err != nil {
		if errors.Is(err, session.ErrSessionClosed) {
			return nil, ErrNotConnected
		}
		return nil, err
	}

	return &PlayOutput{
		Track:    track,
		Position: position,
		Joined:   created,
	}, nil
}

// readySession returns the guild's session once its connection is Ready.
// An existing session may be tearing down when it is handed out; in that
// case a fresh one is created once.
func (p *PlaybackService) readySession(
	ctx context.Context,
	guildID, voiceChannelID, notificationChannelID snowflake.ID,
) (*session.Session, bool, error) {
	readyCtx, cancel := context.WithTimeout(ctx, p.readyTimeout)
	defer cancel()

	for attempt := 0; ; attempt++ {
		s, created, err := p.registry.GetOrCreate(ctx, guildID, voiceChannelID, notificationChannelID)
		if err != nil {
			return nil, false, err
		}

		err = s.AwaitReady(readyCtx)
		switch {
		case err == nil:
			return s, created, nil
		case errors.Is(err, session.ErrSessionClosed) && !created && attempt == 0:
			slog.Debug("session closed while joining, creating a new one", "guild", guildID)
			continue
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, session.ErrSessionClosed):
			return nil, false, ErrReadyTimeout
		default:
			return nil, false, err
		}
	}
}

// lookup resolves ref to the metadata of a single track.
func (p *PlaybackService) lookup(
	ctx context.Context,
	ref domain.TrackReference,
) (*domain.SimpleMetadata, error) {
	if !ref.IsSearch() {
		return p.resolver.Resolve(ctx, ref.ID)
	}

	results, err := p.resolver.Search(ctx, ref.Query, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results[0], nil
}

// trackCallbacks wires the track's lifecycle to the session's notification
// channel. Callbacks run one at a time per session.
func (p *PlaybackService) trackCallbacks(
	s *session.Session,
	track func() *domain.Track,
) domain.TrackCallbacks {
	return domain.TrackCallbacks{
		OnStart: func() {
			p.sendNowPlaying(s, track())
		},
		OnFinish: func() {
			p.deleteNowPlaying(s)
		},
		OnError: func(err error) {
			t := track()
			slog.Warn("track failed", "guild", s.GuildID(), "track", t.ID, "error", err)

			p.deleteNowPlaying(s)
			message := fmt.Sprintf("An error occurred playing `%s`", t.Title())
			if err := p.notifier.SendError(s.NotificationChannelID(), message); err != nil {
				slog.Error("failed to send error notification", "guild", s.GuildID(), "error", err)
			}
		},
	}
}

func (p *PlaybackService) sendNowPlaying(s *session.Session, track *domain.Track) {
	ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
	defer cancel()

	metadata, err := p.resolver.ResolveFull(ctx, track.ID)
	if err != nil {
		slog.Warn("failed to resolve full metadata", "track", track.ID, "error", err)
		metadata = fallbackMetadata(track)
	}

	channelID := s.NotificationChannelID()
	messageID, err := p.notifier.SendNowPlaying(channelID, &ports.NowPlayingInfo{
		Metadata:   metadata,
		Requester:  track.Requester,
		EnqueuedAt: track.EnqueuedAt,
	})
	if err != nil {
		slog.Error("failed to send now playing notification", "guild", s.GuildID(), "error", err)
		return
	}

	prev, replaced := s.SetNowPlaying(domain.NowPlayingMessage{
		ChannelID: channelID,
		MessageID: messageID,
	})
	if replaced {
		p.deleteMessage(prev)
	}
}

// fallbackMetadata builds full metadata from what the track already carries.
func fallbackMetadata(track *domain.Track) *domain.FullMetadata {
	if track.Metadata == nil {
		return &domain.FullMetadata{
			SimpleMetadata: domain.SimpleMetadata{ID: track.ID, Name: track.Title()},
		}
	}
	return &domain.FullMetadata{SimpleMetadata: *track.Metadata}
}

func (p *PlaybackService) deleteNowPlaying(s *session.Session) {
	if msg, ok := s.TakeNowPlaying(); ok {
		p.deleteMessage(msg)
	}
}

func (p *PlaybackService) deleteMessage(msg domain.NowPlayingMessage) {
	if err := p.notifier.DeleteMessage(msg.ChannelID, msg.MessageID); err != nil {
		slog.Warn("failed to delete now playing message", "channel", msg.ChannelID, "error", err)
	}
}

// Skip stops the current track. The next queued track starts on its own.
func (p *PlaybackService) Skip(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	s, err := p.session(input.GuildID)
	if err != nil {
		return nil, err
	}

	// Update notification channel if provided
	if input.NotificationChannelID != 0 {
		s.SetNotificationChannelID(input.NotificationChannelID)
	}

	skipped, err := s.Skip(ctx)
	if err != nil {
		return nil, translateSessionError(err)
	}

	return &SkipOutput{SkippedTrack: skipped}, nil
}

// Stop ends playback, drops the queue and leaves the voice channel.
func (p *PlaybackService) Stop(ctx context.Context, input StopInput) error {
	s, err := p.session(input.GuildID)
	if err != nil {
		return err
	}
	return s.Stop(ctx)
}

// Leave disconnects from the voice channel. It tears the session down
// exactly like Stop.
func (p *PlaybackService) Leave(ctx context.Context, input StopInput) error {
	return p.Stop(ctx, input)
}

// NowPlaying returns the bound track together with its full metadata.
func (p *PlaybackService) NowPlaying(
	ctx context.Context,
	input NowPlayingInput,
) (*NowPlayingOutput, error) {
	s, err := p.session(input.GuildID)
	if err != nil {
		return nil, err
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, translateSessionError(err)
	}
	if snap.Current == nil {
		return nil, ErrNotPlaying
	}

	metadata, err := p.resolver.ResolveFull(ctx, snap.Current.ID)
	if err != nil {
		slog.Warn("failed to resolve full metadata", "track", snap.Current.ID, "error", err)
		metadata = fallbackMetadata(snap.Current)
	}

	return &NowPlayingOutput{
		Track:    snap.Current,
		Metadata: metadata,
		Paused:   snap.Player == domain.PlayerAutoPaused,
	}, nil
}

// session returns the guild's live session.
func (p *PlaybackService) session(guildID snowflake.ID) (*session.Session, error) {
	s, ok := p.registry.Get(guildID)
	if !ok {
		return nil, ErrNotConnected
	}
	return s, nil
}

// translateSessionError maps session errors to use case errors.
func translateSessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionClosed):
		return ErrNotConnected
	case errors.Is(err, session.ErrNothingPlaying):
		return ErrNotPlaying
	case errors.Is(err, session.ErrInvalidPosition):
		return ErrInvalidPosition
	default:
		return err
	}
}
