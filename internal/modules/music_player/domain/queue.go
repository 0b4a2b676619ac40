package domain

import "math/rand/v2"

// Queue is an ordered FIFO of tracks waiting to be played.
// It is not safe for concurrent use; a session owns its queue exclusively.
type Queue struct {
	tracks []*Track
}

// NewQueue creates a new empty Queue.
func NewQueue() *Queue {
	return &Queue{
		tracks: make([]*Track, 0),
	}
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if nothing is queued.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Append adds a track to the tail and reports whether the queue was empty before.
func (q *Queue) Append(track *Track) (wasEmpty bool) {
	wasEmpty = q.IsEmpty()
	q.tracks = append(q.tracks, track)
	return wasEmpty
}

// Peek returns the head without removing it, or nil when empty.
func (q *Queue) Peek() *Track {
	if q.IsEmpty() {
		return nil
	}
	return q.tracks[0]
}

// PopFront removes and returns the head, or nil when empty.
func (q *Queue) PopFront() *Track {
	if q.IsEmpty() {
		return nil
	}
	head := q.tracks[0]
	q.tracks[0] = nil
	q.tracks = q.tracks[1:]
	return head
}

// RemoveAt removes and returns the track at index, or nil if out of range.
func (q *Queue) RemoveAt(index int) *Track {
	if index < 0 || index >= q.Len() {
		return nil
	}
	track := q.tracks[index]
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	return track
}

// List returns a snapshot of the queued tracks in order.
func (q *Queue) List() []*Track {
	result := make([]*Track, q.Len())
	copy(result, q.tracks)
	return result
}

// Clear removes every track and returns how many were dropped.
func (q *Queue) Clear() int {
	n := q.Len()
	q.tracks = make([]*Track, 0)
	return n
}

// Shuffle permutes the queue uniformly (Fisher-Yates).
func (q *Queue) Shuffle() {
	q.shuffleWith(rand.IntN)
}

func (q *Queue) shuffleWith(intN func(int) int) {
	for i := len(q.tracks) - 1; i > 0; i-- {
		j := intN(i + 1)
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	}
}
