package session

import "errors"

var (
	// ErrSessionClosed is returned when the session has already been destroyed.
	ErrSessionClosed = errors.New("session is closed")

	// ErrNothingPlaying is returned when no resource is bound to the player.
	ErrNothingPlaying = errors.New("nothing is playing")

	// ErrInvalidPosition is returned when a queue position is out of range.
	ErrInvalidPosition = errors.New("invalid queue position")

	// errPlayback is reported when the audio node signals an error without details.
	errPlayback = errors.New("playback failed")
)
