package usecases

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/session"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// fakeSource is a test double for ports.MetadataSource backed by a fixed catalogue.
type fakeSource struct {
	mu          sync.Mutex
	tracks      map[domain.TrackID]*domain.FullMetadata
	simpleCalls int
	fullCalls   int
	searchCalls int
	searchErr   error
}

func newFakeSource(tracks ...*domain.FullMetadata) *fakeSource {
	s := &fakeSource{tracks: make(map[domain.TrackID]*domain.FullMetadata)}
	for _, t := range tracks {
		s.tracks[t.ID] = t
	}
	return s
}

func (s *fakeSource) FetchSimple(_ context.Context, id domain.TrackID) (*domain.SimpleMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simpleCalls++
	t, ok := s.tracks[id]
	if !ok {
		return nil, errTrackMissing
	}
	return t.Simple(), nil
}

func (s *fakeSource) FetchFull(_ context.Context, id domain.TrackID) (*domain.FullMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullCalls++
	t, ok := s.tracks[id]
	if !ok {
		return nil, errTrackMissing
	}
	full := *t
	return &full, nil
}

// Search matches tracks whose name contains the query, in id order.
func (s *fakeSource) Search(_ context.Context, query string, limit int) ([]*domain.SimpleMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls++
	if s.searchErr != nil {
		return nil, s.searchErr
	}

	var results []*domain.SimpleMetadata
	for _, id := range slices.Sorted(maps.Keys(s.tracks)) {
		t := s.tracks[id]
		if strings.Contains(strings.ToLower(t.Name), strings.ToLower(query)) {
			results = append(results, t.Simple())
		}
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (s *fakeSource) calls() (simple, full, search int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simpleCalls, s.fullCalls, s.searchCalls
}

var errTrackMissing = errors.New("track missing")

// fakeCache is a test double for ports.MetadataCache without expiry.
type fakeCache struct {
	mu     sync.Mutex
	simple map[domain.TrackID]domain.SimpleMetadata
	full   map[domain.TrackID]domain.FullMetadata
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		simple: make(map[domain.TrackID]domain.SimpleMetadata),
		full:   make(map[domain.TrackID]domain.FullMetadata),
	}
}

func (c *fakeCache) GetSimple(_ context.Context, id domain.TrackID) (*domain.SimpleMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.simple[id]
	if !ok {
		return nil, false
	}
	return &m, true
}

func (c *fakeCache) SetSimple(_ context.Context, metadata *domain.SimpleMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.simple[metadata.ID] = *metadata
}

func (c *fakeCache) GetFull(_ context.Context, id domain.TrackID) (*domain.FullMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.full[id]
	if !ok {
		return nil, false
	}
	return &m, true
}

func (c *fakeCache) SetFull(_ context.Context, metadata *domain.FullMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full[metadata.ID] = *metadata
}

// fakeLoader is a test double for ports.ResourceLoader.
// It encodes a stream URL by prefixing it.
type fakeLoader struct {
	mu    sync.Mutex
	urls  []string
	fails map[string]error
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{fails: make(map[string]error)}
}

func (l *fakeLoader) LoadResource(_ context.Context, streamURL string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = append(l.urls, streamURL)
	if err := l.fails[streamURL]; err != nil {
		return "", err
	}
	return "enc:" + streamURL, nil
}

func (l *fakeLoader) loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.urls...)
}

func (l *fakeLoader) failOn(streamURL string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fails[streamURL] = err
}

// fakeVoiceState is a test double for ports.VoiceStateProvider.
type fakeVoiceState struct {
	channels map[snowflake.ID]snowflake.ID
}

func (f *fakeVoiceState) GetUserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, error) {
	return f.channels[userID], nil
}

// fakeUserInfo is a test double for ports.UserInfoProvider.
type fakeUserInfo struct {
	err error
}

func (f *fakeUserInfo) GetRequester(_, userID snowflake.ID) (domain.Requester, error) {
	if f.err != nil {
		return domain.Requester{}, f.err
	}
	return domain.Requester{ID: userID, Name: fmt.Sprintf("user-%d", userID)}, nil
}

// fakeNotifier is a test double for ports.NotificationSender.
type fakeNotifier struct {
	mu         sync.Mutex
	nextID     snowflake.ID
	nowPlaying []*ports.NowPlayingInfo
	deleted    []snowflake.ID
	errors     []string
}

func (n *fakeNotifier) SendNowPlaying(_ snowflake.ID, info *ports.NowPlayingInfo) (snowflake.ID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.nowPlaying = append(n.nowPlaying, info)
	return 1000 + n.nextID, nil
}

func (n *fakeNotifier) DeleteMessage(_ snowflake.ID, messageID snowflake.ID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, messageID)
	return nil
}

func (n *fakeNotifier) SendError(_ snowflake.ID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
	return nil
}

func (n *fakeNotifier) snapshot() (nowPlaying []*ports.NowPlayingInfo, deleted []snowflake.ID, errs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*ports.NowPlayingInfo(nil), n.nowPlaying...),
		append([]snowflake.ID(nil), n.deleted...),
		append([]string(nil), n.errors...)
}

// fakeVoice is a test double for ports.VoiceConnection. When autoReady is
// set, a join is followed by a Ready event.
type fakeVoice struct {
	mu        sync.Mutex
	joins     int
	leaves    int
	autoReady bool
	sink      ports.TransportEventSink
}

func (f *fakeVoice) JoinChannel(_ context.Context, guildID, _ snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins++
	if f.autoReady && f.sink != nil {
		sink := f.sink
		go sink.OnConnectionEvent(guildID, domain.ConnectionEvent{Kind: domain.ConnectionEventReady})
	}
	return nil
}

func (f *fakeVoice) Rejoin(_ context.Context, _, _ snowflake.ID) error {
	return nil
}

func (f *fakeVoice) LeaveChannel(_ context.Context, _ snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves++
	return nil
}

func (f *fakeVoice) counts() (joins, leaves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins, f.leaves
}

// fakePlayer is a test double for ports.AudioPlayer.
type fakePlayer struct {
	mu    sync.Mutex
	plays []string
}

func (f *fakePlayer) Play(_ context.Context, _ snowflake.ID, resource domain.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, resource.Encoded)
	return nil
}

func (f *fakePlayer) Stop(_ context.Context, _ snowflake.ID, _ bool) error {
	return nil
}

func (f *fakePlayer) played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.plays...)
}

const (
	testGuild        = snowflake.ID(1)
	testVoiceChannel = snowflake.ID(10)
	testTextChannel  = snowflake.ID(20)
	testUser         = snowflake.ID(100)
	testOtherUser    = snowflake.ID(101)
	testDownloader   = "http://downloader"
)

func metadata(id, name string, artists ...string) *domain.FullMetadata {
	return &domain.FullMetadata{
		SimpleMetadata: domain.SimpleMetadata{
			ID:       domain.TrackID(id),
			Name:     name,
			Artists:  artists,
			Duration: 3 * time.Minute,
			URL:      "https://open.spotify.com/track/" + id,
		},
		Album: name + " (Album)",
	}
}

// testIDs are valid 22-character track ids.
const (
	idAlpha = "AAAAAAAAAAAAAAAAAAAAAA"
	idBeta  = "BBBBBBBBBBBBBBBBBBBBBB"
	idGamma = "CCCCCCCCCCCCCCCCCCCCCC"
)

func encodedFor(id string) string {
	return "enc:" + testDownloader + "/track/" + id
}

type harness struct {
	source   *fakeSource
	cache    *fakeCache
	loader   *fakeLoader
	notifier *fakeNotifier
	voice    *fakeVoice
	player   *fakePlayer
	userInfo *fakeUserInfo
	registry *session.Registry
	resolver *TrackResolver
	playback *PlaybackService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		source: newFakeSource(
			metadata(idAlpha, "Alpha Song", "Artist A"),
			metadata(idBeta, "Beta Song", "Artist B", "Artist C"),
			metadata(idGamma, "Gamma Tune", "Artist G"),
		),
		cache:    newFakeCache(),
		loader:   newFakeLoader(),
		notifier: &fakeNotifier{},
		voice:    &fakeVoice{autoReady: true},
		player:   &fakePlayer{},
		userInfo: &fakeUserInfo{},
	}
	h.resolver = NewTrackResolver(h.source, h.cache, h.loader, testDownloader+"/")
	h.registry = session.NewRegistry(session.Dependencies{
		Voice:     h.voice,
		Player:    h.player,
		Resources: h.resolver,
		Messages:  h.notifier,
		Timings: session.Timings{
			ReadyTimeout:      2 * time.Second,
			RecoveryWindow:    50 * time.Millisecond,
			RejoinBackoffUnit: time.Millisecond,
			PrepareTimeout:    2 * time.Second,
			TransportTimeout:  time.Second,
		},
	})
	h.voice.sink = h.registry
	h.playback = NewPlaybackService(
		h.registry,
		h.resolver,
		&fakeVoiceState{channels: map[snowflake.ID]snowflake.ID{testUser: testVoiceChannel}},
		h.userInfo,
		h.notifier,
		time.Second,
	)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.registry.ShutdownAll(ctx)
	})
	return h
}

func (h *harness) play(t *testing.T, query string) *PlayOutput {
	t.Helper()
	output, err := h.playback.Play(context.Background(), PlayInput{
		GuildID:               testGuild,
		UserID:                testUser,
		NotificationChannelID: testTextChannel,
		Query:                 query,
	})
	if err != nil {
		t.Fatalf("failed to play %q: %v", query, err)
	}
	return output
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
