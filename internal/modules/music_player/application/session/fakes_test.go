package session

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// fakeVoice is a test double for ports.VoiceConnection.
type fakeVoice struct {
	mu      sync.Mutex
	joins   int
	rejoins int
	leaves  int
	joinErr error
}

func (f *fakeVoice) JoinChannel(_ context.Context, _, _ snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins++
	return f.joinErr
}

func (f *fakeVoice) Rejoin(_ context.Context, _, _ snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejoins++
	return nil
}

func (f *fakeVoice) LeaveChannel(_ context.Context, _ snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves++
	return nil
}

func (f *fakeVoice) counts() (joins, rejoins, leaves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins, f.rejoins, f.leaves
}

// fakePlayer is a test double for ports.AudioPlayer.
type fakePlayer struct {
	mu      sync.Mutex
	plays   []domain.Resource
	stops   []bool
	playErr error
}

func (f *fakePlayer) Play(_ context.Context, _ snowflake.ID, resource domain.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, resource)
	return f.playErr
}

func (f *fakePlayer) Stop(_ context.Context, _ snowflake.ID, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, force)
	return nil
}

func (f *fakePlayer) played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]string, len(f.plays))
	for i, r := range f.plays {
		result[i] = r.Encoded
	}
	return result
}

func (f *fakePlayer) stopped() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.stops)
}

// fakePreparer is a test double for ResourcePreparer. When gate is set,
// every Prepare call blocks until it receives a token.
type fakePreparer struct {
	mu          sync.Mutex
	failures    map[domain.TrackID]error
	gate        chan struct{}
	inFlight    int
	maxInFlight int
	prepared    []domain.TrackID
	prefetched  []domain.TrackID
}

func newFakePreparer() *fakePreparer {
	return &fakePreparer{failures: make(map[domain.TrackID]error)}
}

func (f *fakePreparer) Prepare(ctx context.Context, track *domain.Track) (domain.Resource, error) {
	f.mu.Lock()
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.prepared = append(f.prepared, track.ID)
	if err := f.failures[track.ID]; err != nil {
		return domain.Resource{}, err
	}
	return resourceFor(track.ID), nil
}

func (f *fakePreparer) Prefetch(track *domain.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefetched = append(f.prefetched, track.ID)
}

func (f *fakePreparer) prefetches() []domain.TrackID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.prefetched)
}

func (f *fakePreparer) stats() (inFlight, maxInFlight int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight, f.maxInFlight
}

func resourceFor(id domain.TrackID) domain.Resource {
	return domain.Resource{TrackID: id, Encoded: "enc-" + string(id)}
}

// fakeDeleter is a test double for MessageDeleter.
type fakeDeleter struct {
	mu      sync.Mutex
	deleted []domain.NowPlayingMessage
}

func (f *fakeDeleter) DeleteMessage(channelID, messageID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, domain.NowPlayingMessage{ChannelID: channelID, MessageID: messageID})
	return nil
}

// recorder collects track callbacks in the order they fire.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func (r *recorder) track(id string) *domain.Track {
	return domain.NewTrack(domain.TrackID(id), domain.Requester{Name: "tester"}, nil, domain.TrackCallbacks{
		OnStart:  func() { r.add("start:" + id) },
		OnFinish: func() { r.add("finish:" + id) },
		OnError:  func(error) { r.add("error:" + id) },
	})
}

type harness struct {
	registry *Registry
	voice    *fakeVoice
	player   *fakePlayer
	preparer *fakePreparer
	deleter  *fakeDeleter
	rec      *recorder
}

func testTimings() Timings {
	return Timings{
		ReadyTimeout:      2 * time.Second,
		RecoveryWindow:    50 * time.Millisecond,
		RejoinBackoffUnit: time.Millisecond,
		PrepareTimeout:    2 * time.Second,
		TransportTimeout:  time.Second,
	}
}

func newHarness(t *testing.T, timings Timings) *harness {
	t.Helper()

	h := &harness{
		voice:    &fakeVoice{},
		player:   &fakePlayer{},
		preparer: newFakePreparer(),
		deleter:  &fakeDeleter{},
		rec:      &recorder{},
	}
	h.registry = NewRegistry(Dependencies{
		Voice:     h.voice,
		Player:    h.player,
		Resources: h.preparer,
		Messages:  h.deleter,
		Timings:   timings,
	})

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.registry.ShutdownAll(ctx)
	})
	return h
}

const (
	testGuild        = snowflake.ID(1)
	testVoiceChannel = snowflake.ID(10)
	testTextChannel  = snowflake.ID(20)
)

// readySession creates the test guild's session and drives it to Ready.
func (h *harness) readySession(t *testing.T) *Session {
	t.Helper()

	s, _, err := h.registry.GetOrCreate(context.Background(), testGuild, testVoiceChannel, testTextChannel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.HandleConnectionEvent(domain.ConnectionEvent{Kind: domain.ConnectionEventReady})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.AwaitReady(ctx); err != nil {
		t.Fatalf("session never became ready: %v", err)
	}
	return s
}

func enqueue(t *testing.T, s *Session, track *domain.Track) {
	t.Helper()
	if _, err := s.Enqueue(context.Background(), track); err != nil {
		t.Fatalf("failed to enqueue %s: %v", track.ID, err)
	}
}

func playing(id string) domain.PlayerEvent {
	return domain.PlayerEvent{Kind: domain.PlayerEventPlaying, Encoded: "enc-" + id}
}

func finished(id string) domain.PlayerEvent {
	return domain.PlayerEvent{
		Kind:      domain.PlayerEventIdle,
		Encoded:   "enc-" + id,
		EndReason: domain.TrackEndFinished,
	}
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

func isDone(s *Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}
