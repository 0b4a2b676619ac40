package session

import (
	"context"
	"fmt"

	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// handlePlayerEvent applies an audio transport event to the bound resource.
func (s *Session) handlePlayerEvent(event domain.PlayerEvent) {
	if s.bound == nil || s.bound.resource.Encoded != event.Encoded {
		s.logger.Debug("ignored player event for unbound resource", "event", event.Kind)
		return
	}
	if event.Kind == domain.PlayerEventIdle &&
		event.EndReason != "" &&
		!event.EndReason.ShouldAdvanceQueue() {
		s.logger.Debug("ignored track end", "reason", event.EndReason)
		return
	}

	err := event.Err
	if event.Kind == domain.PlayerEventError && err == nil {
		err = errPlayback
	}
	s.applyPlayer(event.Kind, err)
}

// applyPlayer runs one player transition and its effects.
func (s *Session) applyPlayer(kind domain.PlayerEventKind, err error) {
	prev := s.status
	next, effects := domain.TransitionPlayer(prev, kind)
	s.status = next

	if prev != next {
		s.logger.Debug("player transition", "event", kind, "from", prev, "to", next)
	}

	bound := s.bound
	for _, effect := range effects {
		switch effect {
		case domain.PlayerEffectStart:
			if bound != nil {
				bound.started = true
				s.callbacks.submit(bound.track.Start)
			}
		case domain.PlayerEffectFinish:
			s.bound = nil
			if bound != nil {
				s.callbacks.submit(bound.track.Finish)
			}
		case domain.PlayerEffectFail:
			if bound != nil {
				track := bound.track
				s.logger.Warn("track playback failed", "track", track.ID, "error", err)
				s.callbacks.submit(func() { track.Fail(err) })
			}
		case domain.PlayerEffectAdvance:
			s.requestAdvance()
		}
	}
}

// requestAdvance moves the queue head into the player. Only one resolution
// is in flight at a time; requests made meanwhile are coalesced into the
// check that runs when it completes.
func (s *Session) requestAdvance() {
	if s.terminated || s.advancing || s.status != domain.PlayerIdle || s.queue.IsEmpty() {
		return
	}
	s.advancing = true

	track := s.queue.PopFront()
	if head := s.queue.Peek(); head != nil {
		s.resources.Prefetch(head)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timings.PrepareTimeout)
		defer cancel()

		resource, err := s.resources.Prepare(ctx, track)
		s.post(func() { s.onPrepared(track, resource, err) })
	}()
}

func (s *Session) onPrepared(track *domain.Track, resource domain.Resource, err error) {
	s.advancing = false

	if err == nil && resource.IsZero() {
		err = fmt.Errorf("empty resource for track %s", track.ID)
	}
	if err != nil {
		s.logger.Warn("failed to prepare track", "track", track.ID, "error", err)
		s.callbacks.submit(func() { track.Fail(err) })
		s.requestAdvance()
		return
	}

	s.bind(track, resource)
}

// bind attaches resource to the player and asks the transport to play it.
func (s *Session) bind(track *domain.Track, resource domain.Resource) {
	s.bound = &binding{track: track, resource: resource}
	s.applyPlayer(domain.PlayerEventBuffering, nil)
	if s.conn.Status != domain.ConnectionReady {
		s.applyPlayer(domain.PlayerEventAutoPaused, nil)
	}

	s.transport.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timings.TransportTimeout)
		defer cancel()

		if err := s.player.Play(ctx, s.guildID, resource); err != nil {
			go s.post(func() { s.onPlayFailed(resource, err) })
		}
	})
}

// onPlayFailed treats a rejected play request like a failed resolution.
func (s *Session) onPlayFailed(resource domain.Resource, err error) {
	if s.bound == nil || s.bound.resource != resource {
		return
	}

	track := s.bound.track
	s.bound = nil
	s.status = domain.PlayerIdle

	s.logger.Warn("failed to play track", "track", track.ID, "error", err)
	s.callbacks.submit(func() { track.Fail(err) })
	s.requestAdvance()
}
