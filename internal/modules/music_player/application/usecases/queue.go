package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

const DefaultPageSize = 10

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID  snowflake.ID
	Page     int // 1-indexed page number
	PageSize int // Items per page (optional, defaults to 10)
}

// QueueListOutput contains the result of the QueueList use case.
type QueueListOutput struct {
	CurrentTrack *domain.Track
	Tracks       []*domain.Track
	TotalTracks  int
	CurrentPage  int
	TotalPages   int
	PageStart    int // 0-indexed queue position of Tracks[0]
}

// QueueRemoveInput contains the input for the QueueRemove use case.
type QueueRemoveInput struct {
	GuildID  snowflake.ID
	Position int // 1-indexed position among upcoming tracks
}

// QueueRemoveOutput contains the result of the QueueRemove use case.
type QueueRemoveOutput struct {
	RemovedTrack *domain.Track
}

// QueueClearInput contains the input for the QueueClear use case.
type QueueClearInput struct {
	GuildID snowflake.ID
}

// QueueClearOutput contains the result of the QueueClear use case.
type QueueClearOutput struct {
	ClearedCount int
}

// QueueShuffleInput contains the input for the QueueShuffle use case.
type QueueShuffleInput struct {
	GuildID snowflake.ID
}

// QueueShuffleOutput contains the result of the QueueShuffle use case.
type QueueShuffleOutput struct {
	TrackCount int
}

// QueueList returns one page of upcoming tracks along with the bound track.
func (p *PlaybackService) QueueList(ctx context.Context, input QueueListInput) (*QueueListOutput, error) {
	s, err := p.session(input.GuildID)
	if err != nil {
		return nil, err
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, translateSessionError(err)
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(snap.Queue)
	totalPages := max(1, (total+pageSize-1)/pageSize)
	page := min(max(input.Page, 1), totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)

	return &QueueListOutput{
		CurrentTrack: snap.Current,
		Tracks:       snap.Queue[start:end],
		TotalTracks:  total,
		CurrentPage:  page,
		TotalPages:   totalPages,
		PageStart:    start,
	}, nil
}

// QueueRemove removes the upcoming track at the given position.
func (p *PlaybackService) QueueRemove(
	ctx context.Context,
	input QueueRemoveInput,
) (*QueueRemoveOutput, error) {
	if input.Position < 1 {
		return nil, ErrInvalidPosition
	}

	s, err := p.session(input.GuildID)
	if err != nil {
		return nil, err
	}

	removed, err := s.Remove(ctx, input.Position-1)
	if err != nil {
		return nil, translateSessionError(err)
	}

	return &QueueRemoveOutput{RemovedTrack: removed}, nil
}

// QueueClear drops every upcoming track. The current track keeps playing.
func (p *PlaybackService) QueueClear(
	ctx context.Context,
	input QueueClearInput,
) (*QueueClearOutput, error) {
	s, err := p.session(input.GuildID)
	if err != nil {
		return nil, err
	}

	cleared, err := s.Clear(ctx)
	if err != nil {
		return nil, translateSessionError(err)
	}
	if cleared == 0 {
		return nil, ErrQueueEmpty
	}

	return &QueueClearOutput{ClearedCount: cleared}, nil
}

// QueueShuffle randomizes the order of the upcoming tracks.
func (p *PlaybackService) QueueShuffle(
	ctx context.Context,
	input QueueShuffleInput,
) (*QueueShuffleOutput, error) {
	s, err := p.session(input.GuildID)
	if err != nil {
		return nil, err
	}

	n, err := s.Shuffle(ctx)
	if err != nil {
		return nil, translateSessionError(err)
	}
	if n == 0 {
		return nil, ErrQueueEmpty
	}

	return &QueueShuffleOutput{TrackCount: n}, nil
}
