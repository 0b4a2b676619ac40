package domain

import (
	"strconv"
	"strings"
	"time"
)

// SimpleMetadata is the cheap subset of track information shown in queue listings.
type SimpleMetadata struct {
	ID       TrackID       `json:"id"`
	Name     string        `json:"name"`
	Artists  []string      `json:"artists"`
	Duration time.Duration `json:"duration"`
	Explicit bool          `json:"explicit"`
	URL      string        `json:"url"`
}

// ArtistsString joins the artist names with commas.
func (m *SimpleMetadata) ArtistsString() string {
	return strings.Join(m.Artists, ", ")
}

// FormattedDuration returns the duration as m:ss or h:mm:ss.
func (m *SimpleMetadata) FormattedDuration() string {
	return FormatDuration(m.Duration)
}

// FullMetadata adds album information used by the now-playing embed.
type FullMetadata struct {
	SimpleMetadata
	Album    string `json:"album"`
	ArtURL   string `json:"art_url"`
	URI      string `json:"uri"`
	Released string `json:"released"`
}

// Simple returns a copy of the simple subset.
func (m *FullMetadata) Simple() *SimpleMetadata {
	s := m.SimpleMetadata
	s.Artists = append([]string(nil), m.Artists...)
	return &s
}

// FormatDuration formats d as m:ss, or h:mm:ss when it is an hour or longer.
func FormatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return strconv.Itoa(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return strconv.Itoa(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
