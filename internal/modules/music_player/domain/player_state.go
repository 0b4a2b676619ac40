package domain

// PlayerStatus is the audio player's state as seen by a session.
type PlayerStatus int

const (
	PlayerIdle PlayerStatus = iota
	PlayerBuffering
	PlayerPlaying
	PlayerAutoPaused
)

func (s PlayerStatus) String() string {
	switch s {
	case PlayerIdle:
		return "idle"
	case PlayerBuffering:
		return "buffering"
	case PlayerPlaying:
		return "playing"
	case PlayerAutoPaused:
		return "auto_paused"
	default:
		return "unknown"
	}
}

// PlayerEffect is a side effect requested by a player transition.
type PlayerEffect int

const (
	// PlayerEffectStart fires the bound track's OnStart.
	PlayerEffectStart PlayerEffect = iota
	// PlayerEffectFinish fires the departing track's OnFinish and unbinds it.
	PlayerEffectFinish
	// PlayerEffectAdvance requests queue advancement.
	PlayerEffectAdvance
	// PlayerEffectFail fires the bound track's OnError.
	PlayerEffectFail
)

// TransitionPlayer computes the next player status and its effects.
//
//	any non-Idle -> Idle       : Finish, Advance
//	any non-Playing -> Playing : Start
//	Error (any state)          : Fail, state unchanged
//	Buffering / AutoPaused     : state change only
func TransitionPlayer(current PlayerStatus, kind PlayerEventKind) (PlayerStatus, []PlayerEffect) {
	switch kind {
	case PlayerEventIdle:
		if current == PlayerIdle {
			return current, nil
		}
		return PlayerIdle, []PlayerEffect{PlayerEffectFinish, PlayerEffectAdvance}

	case PlayerEventPlaying:
		if current == PlayerPlaying {
			return current, nil
		}
		return PlayerPlaying, []PlayerEffect{PlayerEffectStart}

	case PlayerEventBuffering:
		return PlayerBuffering, nil

	case PlayerEventAutoPaused:
		if current == PlayerIdle {
			return current, nil
		}
		return PlayerAutoPaused, nil

	case PlayerEventError:
		return current, []PlayerEffect{PlayerEffectFail}

	default:
		return current, nil
	}
}
