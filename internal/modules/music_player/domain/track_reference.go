package domain

import (
	"regexp"
	"strings"
)

var (
	trackURLPattern = regexp.MustCompile(`^(?:https?://)?(?:open\.)?spotify\.com/(?:intl-[a-z]+/)?track/([a-zA-Z0-9]+)`)
	trackURIPattern = regexp.MustCompile(`^spotify:track:([a-zA-Z0-9]+)$`)
	trackIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9]{22}$`)
)

// TrackReference is user input resolved to either a concrete track id
// or a free-text search query.
type TrackReference struct {
	ID    TrackID
	Query string
}

// ParseTrackReference interprets a track link, a spotify:track URI, or a
// bare 22-character id. Anything else is treated as a search query.
func ParseTrackReference(input string) TrackReference {
	input = strings.TrimSpace(input)

	if m := trackURLPattern.FindStringSubmatch(input); m != nil {
		return TrackReference{ID: TrackID(m[1])}
	}
	if m := trackURIPattern.FindStringSubmatch(input); m != nil {
		return TrackReference{ID: TrackID(m[1])}
	}
	if trackIDPattern.MatchString(input) {
		return TrackReference{ID: TrackID(input)}
	}

	return TrackReference{Query: input}
}

// IsSearch returns true if the reference needs a search to become a track id.
func (r TrackReference) IsSearch() bool {
	return r.ID == ""
}

// IsValid returns true if the reference is not empty.
func (r TrackReference) IsValid() bool {
	return r.ID != "" || r.Query != ""
}
