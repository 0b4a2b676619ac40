package session

import (
	"context"
	"time"

	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// timer is a cancellable deadline owned by the actor. Every arm or cancel
// bumps gen so a firing that was already in flight is discarded.
type timer struct {
	gen uint64
	t   *time.Timer
}

func (s *Session) arm(tm *timer, d time.Duration, kind domain.ConnectionEventKind) {
	s.disarm(tm)
	gen := tm.gen
	tm.t = time.AfterFunc(d, func() {
		s.post(func() {
			if tm.gen != gen {
				return
			}
			tm.t = nil
			s.handleConnectionEvent(domain.ConnectionEvent{Kind: kind})
		})
	})
}

func (s *Session) disarm(tm *timer) {
	tm.gen++
	if tm.t != nil {
		tm.t.Stop()
		tm.t = nil
	}
}

// handleConnectionEvent runs one connection transition and applies its effects.
func (s *Session) handleConnectionEvent(event domain.ConnectionEvent) {
	prev := s.conn
	next, effects := domain.TransitionConnection(prev, event)
	s.conn = next

	if next != prev || len(effects) > 0 {
		s.logger.Debug("connection transition",
			"event", event.Kind,
			"from", prev.Status,
			"to", next.Status,
			"close_code", event.CloseCode,
			"rejoin_attempts", next.RejoinAttempts,
		)
	}

	leave := false
	for _, effect := range effects {
		switch effect.Kind {
		case domain.EffectArmReadyDeadline:
			s.arm(&s.readyTimer, s.timings.ReadyTimeout, domain.ConnectionEventReadyTimeout)
		case domain.EffectCancelReadyDeadline:
			s.disarm(&s.readyTimer)
		case domain.EffectArmRecoveryWindow:
			s.arm(&s.recoveryTimer, s.timings.RecoveryWindow, domain.ConnectionEventRecoveryTimeout)
		case domain.EffectCancelRecoveryWindow:
			s.disarm(&s.recoveryTimer)
		case domain.EffectScheduleRejoin:
			delay := effect.Delay(s.timings.RejoinBackoffUnit)
			s.logger.Info("scheduling voice rejoin", "attempt", effect.Attempt, "delay", delay)
			s.arm(&s.rejoinTimer, delay, domain.ConnectionEventRejoinDue)
		case domain.EffectCancelRejoin:
			s.disarm(&s.rejoinTimer)
		case domain.EffectRejoin:
			s.rejoin()
		case domain.EffectDestroyTransport:
			leave = true
		case domain.EffectCancelTimers:
			s.disarm(&s.readyTimer)
			s.disarm(&s.recoveryTimer)
			s.disarm(&s.rejoinTimer)
		case domain.EffectTerminate:
			s.terminate(leave)
			return
		}
	}

	s.syncPlayerWithConnection(prev.Status, next.Status)
}

// syncPlayerWithConnection pauses the player while the connection is not
// Ready and resumes it once Ready again.
func (s *Session) syncPlayerWithConnection(prev, next domain.ConnectionStatus) {
	if prev == next {
		return
	}

	if next == domain.ConnectionReady {
		waiters := s.readyWaiters
		s.readyWaiters = nil
		for _, w := range waiters {
			close(w)
		}

		if s.status == domain.PlayerAutoPaused && s.bound != nil {
			if s.bound.started {
				s.applyPlayer(domain.PlayerEventPlaying, nil)
			} else {
				s.applyPlayer(domain.PlayerEventBuffering, nil)
			}
		}
		return
	}

	if prev == domain.ConnectionReady && s.bound != nil {
		s.applyPlayer(domain.PlayerEventAutoPaused, nil)
	}
}

func (s *Session) rejoin() {
	s.transport.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timings.TransportTimeout)
		defer cancel()

		if err := s.voice.Rejoin(ctx, s.guildID, s.voiceChannelID); err != nil {
			s.logger.Warn("failed to rejoin voice channel", "error", err)
			go s.HandleConnectionEvent(
				domain.Disconnected(domain.DisconnectReasonAdapterUnavailable, 0),
			)
		}
	})
}
