package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

func TestPlaybackService_PlayValidation(t *testing.T) {
	tests := []struct {
		name    string
		userID  snowflake.ID
		query   string
		wantErr error
	}{
		{name: "empty query", userID: testUser, query: "   ", wantErr: ErrNoResults},
		{name: "user not in voice", userID: testOtherUser, query: idAlpha, wantErr: ErrUserNotInVoice},
		{name: "no search results", userID: testUser, query: "nothing matches", wantErr: ErrNoResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			_, err := h.playback.Play(context.Background(), PlayInput{
				GuildID:               testGuild,
				UserID:                tt.userID,
				NotificationChannelID: testTextChannel,
				Query:                 tt.query,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if joins, _ := h.voice.counts(); joins != 0 {
				t.Errorf("expected no join, got %d", joins)
			}
		})
	}
}

func TestPlaybackService_PlayUnknownTrack(t *testing.T) {
	h := newHarness(t)

	_, err := h.playback.Play(context.Background(), PlayInput{
		GuildID: testGuild,
		UserID:  testUser,
		Query:   "https://open.spotify.com/track/DDDDDDDDDDDDDDDDDDDDDD",
	})
	if !errors.Is(err, errTrackMissing) {
		t.Errorf("expected source error, got %v", err)
	}
	if h.registry.Len() != 0 {
		t.Error("expected no session to be created")
	}
}

func TestPlaybackService_Play(t *testing.T) {
	h := newHarness(t)

	first := h.play(t, "https://open.spotify.com/track/"+idAlpha+"?si=abc")
	if !first.Joined {
		t.Error("expected first play to join")
	}
	if first.Position != 1 {
		t.Errorf("expected position 1, got %d", first.Position)
	}
	if first.Track.ID != idAlpha {
		t.Errorf("expected %s, got %s", idAlpha, first.Track.ID)
	}
	if first.Track.Requester.Name != "user-100" {
		t.Errorf("unexpected requester %+v", first.Track.Requester)
	}

	second := h.play(t, "beta")
	if second.Joined {
		t.Error("expected second play to reuse the session")
	}
	if second.Track.ID != idBeta {
		t.Errorf("expected search to resolve to %s, got %s", idBeta, second.Track.ID)
	}
	if second.Position != 1 {
		t.Errorf("expected position 1 behind the playing track, got %d", second.Position)
	}

	eventually(t, "alpha to be played", func() bool { return len(h.player.played()) == 1 })
	if got := h.player.played()[0]; got != encodedFor(idAlpha) {
		t.Errorf("expected alpha resource, got %q", got)
	}
	if joins, _ := h.voice.counts(); joins != 1 {
		t.Errorf("expected one join, got %d", joins)
	}
}

func TestPlaybackService_PlayRequesterFallback(t *testing.T) {
	h := newHarness(t)
	h.userInfo.err = errors.New("member not cached")

	output := h.play(t, idAlpha)
	if output.Track.Requester.ID != testUser || output.Track.Requester.Name != "" {
		t.Errorf("expected bare requester, got %+v", output.Track.Requester)
	}
}

func TestPlaybackService_PlayReadyTimeout(t *testing.T) {
	h := newHarness(t)
	h.voice.autoReady = false
	h.playback.readyTimeout = 50 * time.Millisecond

	_, err := h.playback.Play(context.Background(), PlayInput{
		GuildID: testGuild,
		UserID:  testUser,
		Query:   idAlpha,
	})
	if !errors.Is(err, ErrReadyTimeout) {
		t.Errorf("expected ErrReadyTimeout, got %v", err)
	}
}

func TestPlaybackService_PlayReplacesClosingSession(t *testing.T) {
	h := newHarness(t)
	h.voice.autoReady = false

	// A session that never became ready and is torn down while /play waits on it.
	stale, _, err := h.registry.GetOrCreate(context.Background(), testGuild, testVoiceChannel, testTextChannel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.voice.mu.Lock()
	h.voice.autoReady = true
	h.voice.mu.Unlock()

	type result struct {
		output *PlayOutput
		err    error
	}
	results := make(chan result, 1)
	go func() {
		output, err := h.playback.Play(context.Background(), PlayInput{
			GuildID:               testGuild,
			UserID:                testUser,
			NotificationChannelID: testTextChannel,
			Query:                 idAlpha,
		})
		results <- result{output, err}
	}()

	time.Sleep(100 * time.Millisecond)
	if err := stale.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := <-results
	if res.err != nil {
		t.Fatalf("expected play to recover with a new session, got %v", res.err)
	}
	if !res.output.Joined {
		t.Error("expected a new session to be joined")
	}

	current, ok := h.registry.Get(testGuild)
	if !ok || current == stale {
		t.Error("expected the registry to hold a new session")
	}
	if joins, _ := h.voice.counts(); joins != 2 {
		t.Errorf("expected 2 joins, got %d", joins)
	}
}

func TestPlaybackService_NowPlayingNotifications(t *testing.T) {
	h := newHarness(t)

	h.play(t, idAlpha)
	h.play(t, idBeta)
	eventually(t, "alpha to be played", func() bool { return len(h.player.played()) == 1 })

	h.registry.OnPlayerEvent(testGuild, domain.PlayerEvent{
		Kind:    domain.PlayerEventPlaying,
		Encoded: encodedFor(idAlpha),
	})
	eventually(t, "now playing for alpha", func() bool {
		nowPlaying, _, _ := h.notifier.snapshot()
		return len(nowPlaying) == 1
	})

	nowPlaying, _, _ := h.notifier.snapshot()
	info := nowPlaying[0]
	if info.Metadata.Album != "Alpha Song (Album)" {
		t.Errorf("expected full metadata, got %+v", info.Metadata)
	}
	if info.Requester.ID != testUser {
		t.Errorf("unexpected requester %+v", info.Requester)
	}

	h.registry.OnPlayerEvent(testGuild, domain.PlayerEvent{
		Kind:      domain.PlayerEventIdle,
		Encoded:   encodedFor(idAlpha),
		EndReason: domain.TrackEndFinished,
	})
	eventually(t, "alpha message to be deleted", func() bool {
		_, deleted, _ := h.notifier.snapshot()
		return len(deleted) == 1
	})
	if _, deleted, _ := h.notifier.snapshot(); deleted[0] != 1001 {
		t.Errorf("expected message 1001 to be deleted, got %d", deleted[0])
	}

	eventually(t, "beta to be played", func() bool { return len(h.player.played()) == 2 })
}

func TestPlaybackService_TrackErrorNotification(t *testing.T) {
	h := newHarness(t)
	h.loader.failOn(h.resolver.StreamURL(idAlpha), errors.New("downloader 404"))

	h.play(t, idAlpha)

	eventually(t, "error notification", func() bool {
		_, _, errs := h.notifier.snapshot()
		return len(errs) == 1
	})
	if _, _, errs := h.notifier.snapshot(); errs[0] != "An error occurred playing `Alpha Song`" {
		t.Errorf("unexpected error message %q", errs[0])
	}
}

func TestPlaybackService_Skip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.playback.Skip(ctx, SkipInput{GuildID: testGuild}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected without a session, got %v", err)
	}

	h.play(t, idAlpha)
	h.play(t, idBeta)
	eventually(t, "alpha to be played", func() bool { return len(h.player.played()) == 1 })

	output, err := h.playback.Skip(ctx, SkipInput{GuildID: testGuild, NotificationChannelID: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.SkippedTrack.ID != idAlpha {
		t.Errorf("expected alpha to be skipped, got %s", output.SkippedTrack.ID)
	}

	s, _ := h.registry.Get(testGuild)
	if s.NotificationChannelID() != 30 {
		t.Errorf("expected notification channel to move to 30, got %d", s.NotificationChannelID())
	}

	eventually(t, "beta to be played", func() bool { return len(h.player.played()) == 2 })
}

func TestPlaybackService_SkipNothingPlaying(t *testing.T) {
	h := newHarness(t)
	h.loader.failOn(h.resolver.StreamURL(idAlpha), errors.New("downloader 404"))

	h.play(t, idAlpha)
	eventually(t, "alpha to fail", func() bool {
		_, _, errs := h.notifier.snapshot()
		return len(errs) == 1
	})

	if _, err := h.playback.Skip(context.Background(), SkipInput{GuildID: testGuild}); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying, got %v", err)
	}
}

func TestPlaybackService_Stop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.playback.Stop(ctx, StopInput{GuildID: testGuild}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	h.play(t, idAlpha)
	if err := h.playback.Leave(ctx, StopInput{GuildID: testGuild}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.registry.Len() != 0 {
		t.Error("expected session to be removed")
	}
	if _, leaves := h.voice.counts(); leaves != 1 {
		t.Errorf("expected one leave, got %d", leaves)
	}

	// A new play starts over with a fresh session
	if output := h.play(t, idBeta); !output.Joined {
		t.Error("expected play after stop to join again")
	}
}

func TestPlaybackService_NowPlaying(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.play(t, idGamma)
	eventually(t, "gamma to be played", func() bool { return len(h.player.played()) == 1 })

	output, err := h.playback.NowPlaying(ctx, NowPlayingInput{GuildID: testGuild})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Track.ID != idGamma {
		t.Errorf("expected gamma, got %s", output.Track.ID)
	}
	if output.Metadata.Album != "Gamma Tune (Album)" {
		t.Errorf("unexpected metadata %+v", output.Metadata)
	}
	if output.Paused {
		t.Error("expected playback not to be paused")
	}
}

func TestPlaybackService_NowPlayingNothing(t *testing.T) {
	h := newHarness(t)

	if _, err := h.playback.NowPlaying(context.Background(), NowPlayingInput{GuildID: testGuild}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestFallbackMetadata(t *testing.T) {
	withMetadata := domain.NewTrack(idAlpha, domain.Requester{}, &domain.SimpleMetadata{
		ID:   idAlpha,
		Name: "Alpha Song",
	}, domain.TrackCallbacks{})
	if got := fallbackMetadata(withMetadata); got.Name != "Alpha Song" {
		t.Errorf("expected name from track metadata, got %q", got.Name)
	}

	bare := domain.NewTrack(idBeta, domain.Requester{}, nil, domain.TrackCallbacks{})
	if got := fallbackMetadata(bare); got.ID != idBeta || got.Name != bare.Title() {
		t.Errorf("unexpected fallback %+v", got)
	}
}
