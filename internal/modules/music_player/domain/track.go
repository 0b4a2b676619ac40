package domain

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// TrackID is the Spotify base62 identifier of a track.
type TrackID string

// Requester identifies the Discord user who enqueued a track.
type Requester struct {
	ID        snowflake.ID
	Name      string
	AvatarURL string
}

// TrackCallbacks are the lifecycle hooks of a Track.
// Any of them may be nil.
type TrackCallbacks struct {
	OnStart  func()
	OnFinish func()
	OnError  func(err error)
}

// Track is a single queued request. Its lifecycle callbacks fire at most once
// each, no matter how many transport events refer to the track.
type Track struct {
	ID         TrackID
	Requester  Requester
	EnqueuedAt time.Time
	Metadata   *SimpleMetadata

	startOnce  sync.Once
	finishOnce sync.Once
	errorOnce  sync.Once
	callbacks  TrackCallbacks

	mu       sync.Mutex
	prefetch *Prefetch
}

// NewTrack creates a Track for the given id and requester.
func NewTrack(
	id TrackID,
	requester Requester,
	metadata *SimpleMetadata,
	callbacks TrackCallbacks,
) *Track {
	return &Track{
		ID:         id,
		Requester:  requester,
		EnqueuedAt: time.Now().UTC(),
		Metadata:   metadata,
		callbacks:  callbacks,
	}
}

// Title returns the track name, falling back to the id when metadata is missing.
func (t *Track) Title() string {
	if t.Metadata == nil || t.Metadata.Name == "" {
		return string(t.ID)
	}
	return t.Metadata.Name
}

// Start fires OnStart once.
func (t *Track) Start() {
	t.startOnce.Do(func() {
		if t.callbacks.OnStart != nil {
			t.callbacks.OnStart()
		}
	})
}

// Finish fires OnFinish once.
func (t *Track) Finish() {
	t.finishOnce.Do(func() {
		if t.callbacks.OnFinish != nil {
			t.callbacks.OnFinish()
		}
	})
}

// Fail fires OnError once. Later errors are dropped.
func (t *Track) Fail(err error) {
	t.errorOnce.Do(func() {
		if t.callbacks.OnError != nil {
			t.callbacks.OnError(err)
		}
	})
}

// AttachPrefetch installs p as the track's prefetch handle.
// It returns false if a prefetch was already attached.
func (t *Track) AttachPrefetch(p *Prefetch) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.prefetch != nil {
		return false
	}
	t.prefetch = p
	return true
}

// Prefetch returns the attached prefetch handle, or nil.
func (t *Track) Prefetch() *Prefetch {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prefetch
}
