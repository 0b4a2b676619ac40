package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// inboxSize is the buffer of the actor's inbox.
const inboxSize = 64

// ResourcePreparer resolves queued tracks to playable resources.
type ResourcePreparer interface {
	// Prepare returns the resource for track, consuming its prefetch if any.
	Prepare(ctx context.Context, track *domain.Track) (domain.Resource, error)

	// Prefetch starts preparing track in the background.
	Prefetch(track *domain.Track)
}

// MessageDeleter removes a posted message.
type MessageDeleter interface {
	DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error
}

// Dependencies are the collaborators shared by every session.
type Dependencies struct {
	Voice     ports.VoiceConnection
	Player    ports.AudioPlayer
	Resources ResourcePreparer
	Messages  MessageDeleter
	Timings   Timings
}

// binding is the resource currently bound to the player.
type binding struct {
	track    *domain.Track
	resource domain.Resource
	started  bool
}

// Snapshot is a consistent view of a session at one point in time.
type Snapshot struct {
	Current    *domain.Track
	Player     domain.PlayerStatus
	Connection domain.ConnectionStatus
	Queue      []*domain.Track
}

// Session owns the voice connection, player and queue of one guild.
//
// All mutable playback state is owned by a single actor goroutine: every
// transport event, timer and user request is posted to the inbox and
// applied in order. Blocking work (resolution, transport calls, user
// callbacks) runs elsewhere and posts its outcome back.
type Session struct {
	id             uuid.UUID
	guildID        snowflake.ID
	voiceChannelID snowflake.ID

	voice     ports.VoiceConnection
	player    ports.AudioPlayer
	resources ResourcePreparer
	messages  MessageDeleter
	timings   Timings
	logger    *slog.Logger

	inbox   chan func()
	stopped chan struct{}
	done    chan struct{}

	// callbacks runs track lifecycle hooks in order, off the actor.
	callbacks *serialExecutor
	// transport serializes player and voice calls.
	transport *serialExecutor

	onTerminated func(*Session)

	// Actor-owned state.
	conn          domain.ConnectionState
	status        domain.PlayerStatus
	queue         *domain.Queue
	bound         *binding
	advancing     bool
	terminated    bool
	readyWaiters  []chan struct{}
	readyTimer    timer
	recoveryTimer timer
	rejoinTimer   timer

	mu                    sync.Mutex
	notificationChannelID snowflake.ID
	nowPlaying            domain.NowPlayingMessage
}

func newSession(
	guildID, voiceChannelID, notificationChannelID snowflake.ID,
	deps Dependencies,
	onTerminated func(*Session),
) *Session {
	id := uuid.New()
	return &Session{
		id:                    id,
		guildID:               guildID,
		voiceChannelID:        voiceChannelID,
		notificationChannelID: notificationChannelID,
		voice:                 deps.Voice,
		player:                deps.Player,
		resources:             deps.Resources,
		messages:              deps.Messages,
		timings:               deps.Timings,
		logger:                slog.With("guild", guildID, "session", id.String()),
		inbox:                 make(chan func(), inboxSize),
		stopped:               make(chan struct{}),
		done:                  make(chan struct{}),
		onTerminated:          onTerminated,
		conn:                  domain.NewConnectionState(),
		status:                domain.PlayerIdle,
		queue:                 domain.NewQueue(),
	}
}

// start launches the actor and its executors.
func (s *Session) start() {
	s.callbacks = newSerialExecutor()
	s.transport = newSerialExecutor()
	go s.run()
}

func (s *Session) run() {
	defer close(s.stopped)

	for {
		fn := <-s.inbox
		fn()
		if s.terminated {
			return
		}
	}
}

// post queues fn for the actor. It returns false once the actor has stopped.
func (s *Session) post(fn func()) bool {
	select {
	case <-s.stopped:
		return false
	default:
	}

	select {
	case s.inbox <- fn:
		return true
	case <-s.stopped:
		return false
	}
}

// do runs fn on the actor and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !s.post(func() {
		fn()
		close(finished)
	}) {
		return ErrSessionClosed
	}

	select {
	case <-finished:
		return nil
	case <-s.stopped:
		select {
		case <-finished:
			return nil
		default:
			return ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ID returns the unique id of this session instance.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// GuildID returns the guild this session belongs to.
func (s *Session) GuildID() snowflake.ID {
	return s.guildID
}

// VoiceChannelID returns the voice channel the session joined.
func (s *Session) VoiceChannelID() snowflake.ID {
	return s.voiceChannelID
}

// NotificationChannelID returns the text channel used for status messages.
func (s *Session) NotificationChannelID() snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notificationChannelID
}

// SetNotificationChannelID changes where status messages are posted.
func (s *Session) SetNotificationChannelID(channelID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationChannelID = channelID
}

// SetNowPlaying records the current "Now Playing" message and returns the
// one it replaces, if any.
func (s *Session) SetNowPlaying(msg domain.NowPlayingMessage) (domain.NowPlayingMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.nowPlaying
	s.nowPlaying = msg
	return prev, !prev.IsZero()
}

// TakeNowPlaying clears and returns the current "Now Playing" message.
func (s *Session) TakeNowPlaying() (domain.NowPlayingMessage, bool) {
	return s.SetNowPlaying(domain.NowPlayingMessage{})
}

// Done is closed once the session is destroyed and its callbacks have drained.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Enqueue appends track to the queue and returns its 1-based position.
func (s *Session) Enqueue(ctx context.Context, track *domain.Track) (int, error) {
	var position int
	err := s.do(ctx, func() {
		wasEmpty := s.queue.Append(track)
		position = s.queue.Len()
		if wasEmpty {
			s.resources.Prefetch(track)
		}
		s.logger.Debug("enqueued track", "track", track.ID, "position", position)
		s.requestAdvance()
	})
	return position, err
}

// AwaitReady blocks until the voice connection is Ready.
func (s *Session) AwaitReady(ctx context.Context) error {
	var waiter chan struct{}
	err := s.do(ctx, func() {
		if s.conn.Status == domain.ConnectionReady {
			return
		}
		waiter = make(chan struct{})
		s.readyWaiters = append(s.readyWaiters, waiter)
	})
	if err != nil {
		return err
	}
	if waiter == nil {
		return nil
	}

	select {
	case <-waiter:
		return nil
	case <-s.stopped:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Skip stops the bound resource and advances to the next track.
func (s *Session) Skip(ctx context.Context) (*domain.Track, error) {
	var skipped *domain.Track
	err := s.do(ctx, func() {
		if s.bound == nil {
			return
		}
		skipped = s.bound.track
		s.submitTransport("stop", func(ctx context.Context) error {
			return s.player.Stop(ctx, s.guildID, false)
		})
		s.applyPlayer(domain.PlayerEventIdle, nil)
	})
	if err != nil {
		return nil, err
	}
	if skipped == nil {
		return nil, ErrNothingPlaying
	}
	return skipped, nil
}

// Clear drops every queued track and returns how many were removed.
// The bound track keeps playing.
func (s *Session) Clear(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, func() {
		n = s.queue.Clear()
	})
	return n, err
}

// Shuffle randomizes the queue order and returns the queue length.
func (s *Session) Shuffle(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, func() {
		s.queue.Shuffle()
		n = s.queue.Len()
		s.prefetchHead()
	})
	return n, err
}

// Remove deletes the track at the 0-based queue index.
func (s *Session) Remove(ctx context.Context, index int) (*domain.Track, error) {
	var removed *domain.Track
	err := s.do(ctx, func() {
		removed = s.queue.RemoveAt(index)
		if removed != nil && index == 0 {
			s.prefetchHead()
		}
	})
	if err != nil {
		return nil, err
	}
	if removed == nil {
		return nil, ErrInvalidPosition
	}
	return removed, nil
}

// prefetchHead starts preparing a newly exposed queue head. An idle player
// with nothing resolving picks the head up directly instead.
func (s *Session) prefetchHead() {
	if head := s.queue.Peek(); head != nil && (s.bound != nil || s.advancing) {
		s.resources.Prefetch(head)
	}
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() {
		snap = Snapshot{
			Player:     s.status,
			Connection: s.conn.Status,
			Queue:      s.queue.List(),
		}
		if s.bound != nil {
			snap.Current = s.bound.track
		}
	})
	return snap, err
}

// Stop destroys the session and waits until it has fully shut down.
func (s *Session) Stop(ctx context.Context) error {
	s.post(func() {
		s.handleConnectionEvent(domain.ConnectionEvent{Kind: domain.ConnectionEventDestroyRequested})
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleConnectionEvent feeds a voice transport event to the session.
func (s *Session) HandleConnectionEvent(event domain.ConnectionEvent) {
	s.post(func() { s.handleConnectionEvent(event) })
}

// HandlePlayerEvent feeds an audio transport event to the session.
func (s *Session) HandlePlayerEvent(event domain.PlayerEvent) {
	s.post(func() { s.handlePlayerEvent(event) })
}

// submitTransport runs a transport call on the serialized transport executor.
func (s *Session) submitTransport(op string, call func(ctx context.Context) error) {
	s.transport.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timings.TransportTimeout)
		defer cancel()

		if err := call(ctx); err != nil {
			s.logger.Warn("transport call failed", "op", op, "error", err)
		}
	})
}

// terminate is the single shutdown routine. Every destruction path ends here.
func (s *Session) terminate(leave bool) {
	if s.terminated {
		return
	}
	s.terminated = true

	dropped := s.queue.Clear()
	s.advancing = false

	ctx, cancel := context.WithTimeout(context.Background(), s.timings.TransportTimeout)
	defer cancel()

	// Wait for queued transport calls so the forced stop is the last one.
	s.transport.close()
	<-s.transport.done

	if err := s.player.Stop(ctx, s.guildID, true); err != nil {
		s.logger.Warn("failed to stop player", "error", err)
	}
	if bound := s.bound; bound != nil {
		s.bound = nil
		s.callbacks.submit(bound.track.Finish)
	}
	s.status = domain.PlayerIdle

	if leave {
		if err := s.voice.LeaveChannel(ctx, s.guildID); err != nil {
			s.logger.Warn("failed to leave voice channel", "error", err)
		}
	}

	s.callbacks.submit(s.deleteNowPlaying)
	s.callbacks.close()

	if s.onTerminated != nil {
		s.onTerminated(s)
	}

	go func() {
		<-s.callbacks.done
		close(s.done)
	}()

	s.logger.Info("destroyed session", "dropped_tracks", dropped)
}

func (s *Session) deleteNowPlaying() {
	msg, ok := s.TakeNowPlaying()
	if !ok || s.messages == nil {
		return
	}
	if err := s.messages.DeleteMessage(msg.ChannelID, msg.MessageID); err != nil {
		s.logger.Warn("failed to delete now playing message", "error", err)
	}
}
