package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// ErrNoTrackLoaded is returned when the audio node finds nothing at a stream URL.
var ErrNoTrackLoaded = errors.New("no track loaded")

// voiceEventBuffer buffers voice events to ensure both VoiceStateUpdate and
// VoiceServerUpdate are received before forwarding to Lavalink.
// This prevents "Partial Lavalink voice state" errors when events arrive out of order.
// Server details survive a forward so a rejoin that only produces a fresh
// VoiceStateUpdate can be forwarded again.
type voiceEventBuffer struct {
	mu sync.Mutex

	// From VoiceStateUpdate
	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	// From VoiceServerUpdate
	hasVoiceServer bool
	token          string
	endpoint       string
}

// setVoiceState stores voice state data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceState && b.hasVoiceServer
}

// setVoiceServer stores voice server data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState && b.hasVoiceServer
}

// take returns the buffered data and waits for the next VoiceStateUpdate.
func (b *voiceEventBuffer) take() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = false
	return b.channelID, b.sessionID, b.token, b.endpoint
}

// LavalinkAdapter wraps DisGoLink to implement the voice and audio ports.
// Transport events are translated into domain events and handed to the sink.
type LavalinkAdapter struct {
	link    disgolink.Client
	session *discordgo.Session
	botID   snowflake.ID

	// voiceBuffers holds buffered voice events per guild to handle out-of-order events
	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	sinkMu sync.RWMutex
	sink   ports.TransportEventSink
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// NewLavalinkAdapter creates a new LavalinkAdapter connected to one node.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := &LavalinkAdapter{
		session:      session,
		botID:        botID,
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
	}

	adapter.link = disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
		disgolink.WithListenerFunc(adapter.onWebSocketClosed),
	)

	node, err := adapter.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// SetEventSink sets where connection and player events are delivered.
func (c *LavalinkAdapter) SetEventSink(sink ports.TransportEventSink) {
	c.sinkMu.Lock()
	defer c.sinkMu.Unlock()
	c.sink = sink
}

// Close disconnects from every Lavalink node.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// JoinChannel asks the gateway to move the bot into the voice channel.
// Progress is reported through the event sink.
func (c *LavalinkAdapter) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	if err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, false); err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}
	return nil
}

// Rejoin repeats the voice handshake for a dropped connection.
func (c *LavalinkAdapter) Rejoin(ctx context.Context, guildID, channelID snowflake.ID) error {
	c.emitConnection(guildID, domain.ConnectionEvent{Kind: domain.ConnectionEventSignalling})

	if err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, false); err != nil {
		return fmt.Errorf("failed to rejoin voice channel: %w", err)
	}
	return nil
}

// LeaveChannel destroys the player and disconnects from the voice channel.
func (c *LavalinkAdapter) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	if player := c.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}
	c.clearVoiceBuffer(guildID)

	if err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Play binds the resource to the guild's player.
func (c *LavalinkAdapter) Play(ctx context.Context, guildID snowflake.ID, resource domain.Resource) error {
	player := c.link.Player(guildID)

	// Use WithEncodedTrack to avoid userData:null issue
	if err := player.Update(ctx, lavalink.WithEncodedTrack(resource.Encoded)); err != nil {
		return fmt.Errorf("failed to play track: %w", err)
	}
	return nil
}

// Stop stops the current track. A forced stop destroys the player so the
// node sends no further events for it.
func (c *LavalinkAdapter) Stop(ctx context.Context, guildID snowflake.ID, force bool) error {
	player := c.link.ExistingPlayer(guildID)
	if player == nil {
		return nil
	}

	if force {
		if err := player.Destroy(ctx); err != nil {
			return fmt.Errorf("failed to destroy player: %w", err)
		}
		return nil
	}

	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// LoadResource asks the node to load the stream URL and returns its encoded track.
func (c *LavalinkAdapter) LoadResource(ctx context.Context, streamURL string) (string, error) {
	node := c.link.BestNode()
	if node == nil {
		return "", fmt.Errorf("no available Lavalink node")
	}

	result, err := node.LoadTracks(ctx, streamURL)
	if err != nil {
		return "", fmt.Errorf("failed to load tracks: %w", err)
	}

	return encodedFromLoadResult(result)
}

// encodedFromLoadResult picks the first playable track of a load result.
func encodedFromLoadResult(result *lavalink.LoadResult) (string, error) {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return data.Encoded, nil

	case lavalink.Playlist:
		if len(data.Tracks) > 0 {
			return data.Tracks[0].Encoded, nil
		}

	case lavalink.Search:
		if len(data) > 0 {
			return data[0].Encoded, nil
		}

	case lavalink.Exception:
		return "", fmt.Errorf("failed to load track: %s", data.Message)
	}

	return "", ErrNoTrackLoaded
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	buffer := c.getOrCreateVoiceBuffer(guildID)
	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}
}

// OnVoiceStateUpdate handles Discord voice state updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	// Only handle updates for the bot itself
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	// An empty channel means the bot was removed from voice.
	if event.ChannelID == "" {
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		c.clearVoiceBuffer(guildID)
		c.emitConnection(guildID, domain.Disconnected(
			domain.DisconnectReasonWebSocketClose,
			domain.CloseCodeKicked,
		))
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	buffer := c.getOrCreateVoiceBuffer(guildID)
	if buffer.setVoiceState(&channelID, event.SessionID) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}
}

// getOrCreateVoiceBuffer returns the voice buffer for a guild, creating one if needed.
func (c *LavalinkAdapter) getOrCreateVoiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()

	buffer, exists := c.voiceBuffers[guildID]
	if !exists {
		buffer = &voiceEventBuffer{}
		c.voiceBuffers[guildID] = buffer
	}
	return buffer
}

// clearVoiceBuffer removes the voice buffer for a guild.
func (c *LavalinkAdapter) clearVoiceBuffer(guildID snowflake.ID) {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()
	delete(c.voiceBuffers, guildID)
}

// forwardBufferedVoiceEvents hands the voice credentials to Lavalink. The
// connection is Ready once the node has accepted them.
func (c *LavalinkAdapter) forwardBufferedVoiceEvents(
	guildID snowflake.ID,
	buffer *voiceEventBuffer,
) {
	channelID, sessionID, token, endpoint := buffer.take()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	c.emitConnection(guildID, domain.ConnectionEvent{Kind: domain.ConnectionEventConnecting})

	// Forward to Lavalink in the correct order
	c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)

	c.emitConnection(guildID, domain.ConnectionEvent{Kind: domain.ConnectionEventReady})
}

func (c *LavalinkAdapter) eventSink() ports.TransportEventSink {
	c.sinkMu.RLock()
	defer c.sinkMu.RUnlock()
	return c.sink
}

func (c *LavalinkAdapter) emitConnection(guildID snowflake.ID, event domain.ConnectionEvent) {
	if sink := c.eventSink(); sink != nil {
		sink.OnConnectionEvent(guildID, event)
	}
}

func (c *LavalinkAdapter) emitPlayer(guildID snowflake.ID, event domain.PlayerEvent) {
	if sink := c.eventSink(); sink != nil {
		sink.OnPlayerEvent(guildID, event)
	}
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
	c.emitPlayer(player.GuildID(), trackStartEvent(event))
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)
	c.emitPlayer(player.GuildID(), trackEndEvent(event))
}

func (c *LavalinkAdapter) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
	c.emitPlayer(player.GuildID(), trackExceptionEvent(event))
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)
	c.emitPlayer(player.GuildID(), trackStuckEvent(event))
}

func (c *LavalinkAdapter) onWebSocketClosed(
	player disgolink.Player,
	event lavalink.WebSocketClosedEvent,
) {
	slog.Warn("voice websocket closed",
		"guild", player.GuildID(),
		"code", event.Code,
		"reason", event.Reason,
		"by_remote", event.ByRemote,
	)
	c.emitConnection(player.GuildID(), webSocketClosedEvent(event))
}

func trackStartEvent(event lavalink.TrackStartEvent) domain.PlayerEvent {
	return domain.PlayerEvent{
		Kind:    domain.PlayerEventPlaying,
		Encoded: event.Track.Encoded,
	}
}

func trackEndEvent(event lavalink.TrackEndEvent) domain.PlayerEvent {
	return domain.PlayerEvent{
		Kind:      domain.PlayerEventIdle,
		Encoded:   event.Track.Encoded,
		EndReason: convertEndReason(event.Reason),
	}
}

func trackExceptionEvent(event lavalink.TrackExceptionEvent) domain.PlayerEvent {
	return domain.PlayerEvent{
		Kind:    domain.PlayerEventError,
		Encoded: event.Track.Encoded,
		Err:     fmt.Errorf("track exception: %s", event.Exception.Message),
	}
}

func trackStuckEvent(event lavalink.TrackStuckEvent) domain.PlayerEvent {
	return domain.PlayerEvent{
		Kind:    domain.PlayerEventError,
		Encoded: event.Track.Encoded,
		Err:     errors.New("track stuck"),
	}
}

func webSocketClosedEvent(event lavalink.WebSocketClosedEvent) domain.ConnectionEvent {
	return domain.Disconnected(domain.DisconnectReasonWebSocketClose, event.Code)
}

func convertEndReason(reason lavalink.TrackEndReason) domain.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return domain.TrackEndLoadFailed
	case lavalink.TrackEndReasonStopped:
		return domain.TrackEndStopped
	case lavalink.TrackEndReasonReplaced:
		return domain.TrackEndReplaced
	case lavalink.TrackEndReasonCleanup:
		return domain.TrackEndCleanup
	default:
		return domain.TrackEndStopped
	}
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.AudioPlayer     = (*LavalinkAdapter)(nil)
	_ ports.VoiceConnection = (*LavalinkAdapter)(nil)
	_ ports.ResourceLoader  = (*LavalinkAdapter)(nil)
)
