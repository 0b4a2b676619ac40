package domain

import "fmt"

// TrackEndReason represents why the audio node ended a track.
type TrackEndReason string

const (
	// TrackEndFinished means the track finished normally.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the track failed to load.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means the track was stopped.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means the track was replaced by another.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the player was cleaned up.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ShouldAdvanceQueue returns true if this end reason is a natural completion.
// Stopped, replaced and cleanup ends are caused by the session itself.
func (r TrackEndReason) ShouldAdvanceQueue() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed
}

// PlayerEventKind enumerates the player signals a session reacts to.
type PlayerEventKind int

const (
	PlayerEventBuffering PlayerEventKind = iota
	PlayerEventPlaying
	PlayerEventIdle
	PlayerEventAutoPaused
	PlayerEventError
)

func (k PlayerEventKind) String() string {
	switch k {
	case PlayerEventBuffering:
		return "buffering"
	case PlayerEventPlaying:
		return "playing"
	case PlayerEventIdle:
		return "idle"
	case PlayerEventAutoPaused:
		return "auto_paused"
	case PlayerEventError:
		return "error"
	default:
		return fmt.Sprintf("player_event(%d)", int(k))
	}
}

// PlayerEvent is a signal from the audio transport about one resource.
// Encoded identifies the resource the event refers to; events for a
// resource other than the bound one are ignored.
type PlayerEvent struct {
	Kind      PlayerEventKind
	Encoded   string
	EndReason TrackEndReason
	Err       error
}

// ConnectionEventKind enumerates connection lifecycle signals and the
// internal timer signals of the connection state machine.
type ConnectionEventKind int

const (
	ConnectionEventSignalling ConnectionEventKind = iota
	ConnectionEventConnecting
	ConnectionEventReady
	ConnectionEventDisconnected
	ConnectionEventDestroyed
	ConnectionEventDestroyRequested
	ConnectionEventReadyTimeout
	ConnectionEventRecoveryTimeout
	ConnectionEventRejoinDue
)

func (k ConnectionEventKind) String() string {
	switch k {
	case ConnectionEventSignalling:
		return "signalling"
	case ConnectionEventConnecting:
		return "connecting"
	case ConnectionEventReady:
		return "ready"
	case ConnectionEventDisconnected:
		return "disconnected"
	case ConnectionEventDestroyed:
		return "destroyed"
	case ConnectionEventDestroyRequested:
		return "destroy_requested"
	case ConnectionEventReadyTimeout:
		return "ready_timeout"
	case ConnectionEventRecoveryTimeout:
		return "recovery_timeout"
	case ConnectionEventRejoinDue:
		return "rejoin_due"
	default:
		return fmt.Sprintf("connection_event(%d)", int(k))
	}
}

// DisconnectReason classifies why the voice transport dropped.
type DisconnectReason int

const (
	DisconnectReasonWebSocketClose DisconnectReason = iota
	DisconnectReasonAdapterUnavailable
	DisconnectReasonEndpointRemoved
	DisconnectReasonManual
)

// CloseCodeKicked is the voice gateway close code for "disconnected":
// the bot was moved, kicked, or the channel was deleted.
const CloseCodeKicked = 4014

// ConnectionEvent is a lifecycle signal from the voice transport.
type ConnectionEvent struct {
	Kind      ConnectionEventKind
	Reason    DisconnectReason
	CloseCode int
}

// IsKickedClose reports whether the event is a websocket close with code 4014.
func (e ConnectionEvent) IsKickedClose() bool {
	return e.Kind == ConnectionEventDisconnected &&
		e.Reason == DisconnectReasonWebSocketClose &&
		e.CloseCode == CloseCodeKicked
}

// Disconnected builds a Disconnected event.
func Disconnected(reason DisconnectReason, closeCode int) ConnectionEvent {
	return ConnectionEvent{
		Kind:      ConnectionEventDisconnected,
		Reason:    reason,
		CloseCode: closeCode,
	}
}
