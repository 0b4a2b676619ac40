package domain

import "github.com/disgoorg/snowflake/v2"

// NowPlayingMessage locates a posted "Now Playing" message so it can be
// deleted later, even if the notification channel changed since.
type NowPlayingMessage struct {
	ChannelID snowflake.ID
	MessageID snowflake.ID
}

// IsZero reports whether no message is referenced.
func (m NowPlayingMessage) IsZero() bool {
	return m.MessageID == 0
}
