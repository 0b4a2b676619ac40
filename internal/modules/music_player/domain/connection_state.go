package domain

import "time"

// ConnectionStatus is the lifecycle state of a voice connection.
type ConnectionStatus int

const (
	ConnectionSignalling ConnectionStatus = iota
	ConnectionConnecting
	ConnectionReady
	ConnectionDisconnected
	ConnectionDestroyed
)

func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionSignalling:
		return "signalling"
	case ConnectionConnecting:
		return "connecting"
	case ConnectionReady:
		return "ready"
	case ConnectionDisconnected:
		return "disconnected"
	case ConnectionDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

const (
	// MaxRejoinAttempts is the number of consecutive generic disconnects
	// tolerated without reaching Ready. The disconnect that exhausts the
	// budget destroys the connection.
	MaxRejoinAttempts = 5

	// RejoinBackoffUnit is multiplied by the attempt number to get the
	// delay before a rejoin.
	RejoinBackoffUnit = 5 * time.Second

	// ReadyTimeout bounds Signalling/Connecting before Ready.
	ReadyTimeout = 20 * time.Second

	// RecoveryWindow is how long a 4014 close may take to return to Connecting.
	RecoveryWindow = 5 * time.Second
)

// ConnectionState is the full state of the connection state machine.
type ConnectionState struct {
	Status         ConnectionStatus
	RejoinAttempts int

	// ReadyLock is set while a Ready deadline is armed.
	ReadyLock bool
	// AwaitingRecovery is set while the 4014 recovery window is open.
	AwaitingRecovery bool
	// RejoinPending is set while a backoff delay is running.
	RejoinPending bool
}

// NewConnectionState returns the initial state of a freshly created connection.
func NewConnectionState() ConnectionState {
	return ConnectionState{Status: ConnectionSignalling}
}

// ConnectionEffectKind enumerates the side effects the state machine can request.
type ConnectionEffectKind int

const (
	EffectArmReadyDeadline ConnectionEffectKind = iota
	EffectCancelReadyDeadline
	EffectArmRecoveryWindow
	EffectCancelRecoveryWindow
	EffectScheduleRejoin
	EffectCancelRejoin
	EffectRejoin
	EffectDestroyTransport
	EffectCancelTimers
	EffectTerminate
)

func (k ConnectionEffectKind) String() string {
	switch k {
	case EffectArmReadyDeadline:
		return "arm_ready_deadline"
	case EffectCancelReadyDeadline:
		return "cancel_ready_deadline"
	case EffectArmRecoveryWindow:
		return "arm_recovery_window"
	case EffectCancelRecoveryWindow:
		return "cancel_recovery_window"
	case EffectScheduleRejoin:
		return "schedule_rejoin"
	case EffectCancelRejoin:
		return "cancel_rejoin"
	case EffectRejoin:
		return "rejoin"
	case EffectDestroyTransport:
		return "destroy_transport"
	case EffectCancelTimers:
		return "cancel_timers"
	case EffectTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// ConnectionEffect is one requested side effect. Attempt is set for
// EffectScheduleRejoin only; the backoff delay is Attempt times the unit.
type ConnectionEffect struct {
	Kind    ConnectionEffectKind
	Attempt int
}

// Delay returns the backoff delay for a scheduled rejoin.
func (e ConnectionEffect) Delay(unit time.Duration) time.Duration {
	return time.Duration(e.Attempt) * unit
}

func effect(kind ConnectionEffectKind) ConnectionEffect {
	return ConnectionEffect{Kind: kind}
}

// TransitionConnection computes the next connection state and the effects
// the driver must apply. It is pure: timers and transport calls are the
// caller's job.
//
//	Destroyed + any               : no-op
//	Signalling/Connecting         : arm Ready deadline unless already armed;
//	                                closes an open 4014 recovery window
//	Ready                         : reset attempts, cancel deadline, window and pending rejoin
//	Disconnected(4014)            : open 5s recovery window
//	Disconnected(other)           : schedule rejoin after (attempts+1)*5s,
//	                                or destroy when the budget is spent
//	ReadyTimeout (not Ready)      : destroy
//	RecoveryTimeout (window open) : destroy
//	RejoinDue                     : count the attempt and rejoin
//	DestroyRequested              : destroy transport and terminate
//	Destroyed                     : terminate
func TransitionConnection(state ConnectionState, event ConnectionEvent) (ConnectionState, []ConnectionEffect) {
	if state.Status == ConnectionDestroyed {
		return state, nil
	}

	var effects []ConnectionEffect

	switch event.Kind {
	case ConnectionEventSignalling, ConnectionEventConnecting:
		if event.Kind == ConnectionEventSignalling {
			state.Status = ConnectionSignalling
		} else {
			state.Status = ConnectionConnecting
		}
		if state.AwaitingRecovery {
			state.AwaitingRecovery = false
			effects = append(effects, effect(EffectCancelRecoveryWindow))
		}
		if !state.ReadyLock {
			state.ReadyLock = true
			effects = append(effects, effect(EffectArmReadyDeadline))
		}

	case ConnectionEventReady:
		state.Status = ConnectionReady
		state.RejoinAttempts = 0
		if state.ReadyLock {
			state.ReadyLock = false
			effects = append(effects, effect(EffectCancelReadyDeadline))
		}
		if state.AwaitingRecovery {
			state.AwaitingRecovery = false
			effects = append(effects, effect(EffectCancelRecoveryWindow))
		}
		if state.RejoinPending {
			state.RejoinPending = false
			effects = append(effects, effect(EffectCancelRejoin))
		}

	case ConnectionEventDisconnected:
		state.Status = ConnectionDisconnected
		if event.IsKickedClose() {
			if !state.AwaitingRecovery {
				state.AwaitingRecovery = true
				effects = append(effects, effect(EffectArmRecoveryWindow))
			}
			break
		}
		if state.RejoinPending {
			break
		}
		if state.RejoinAttempts+1 >= MaxRejoinAttempts {
			return destroy(state, true)
		}
		state.RejoinPending = true
		effects = append(effects, ConnectionEffect{
			Kind:    EffectScheduleRejoin,
			Attempt: state.RejoinAttempts + 1,
		})

	case ConnectionEventReadyTimeout:
		if !state.ReadyLock {
			return state, nil
		}
		state.ReadyLock = false
		if state.Status == ConnectionReady {
			return state, nil
		}
		return destroy(state, true)

	case ConnectionEventRecoveryTimeout:
		if !state.AwaitingRecovery {
			return state, nil
		}
		state.AwaitingRecovery = false
		return destroy(state, true)

	case ConnectionEventRejoinDue:
		if !state.RejoinPending {
			return state, nil
		}
		state.RejoinPending = false
		if state.Status == ConnectionReady {
			return state, nil
		}
		state.RejoinAttempts++
		effects = append(effects, effect(EffectRejoin))

	case ConnectionEventDestroyRequested:
		return destroy(state, true)

	case ConnectionEventDestroyed:
		return destroy(state, false)
	}

	return state, effects
}

func destroy(state ConnectionState, destroyTransport bool) (ConnectionState, []ConnectionEffect) {
	state.Status = ConnectionDestroyed
	state.ReadyLock = false
	state.AwaitingRecovery = false
	state.RejoinPending = false

	effects := []ConnectionEffect{effect(EffectCancelTimers)}
	if destroyTransport {
		effects = append(effects, effect(EffectDestroyTransport))
	}
	return state, append(effects, effect(EffectTerminate))
}
