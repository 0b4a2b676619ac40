package usecases

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// MaxAutocompleteChoices is the most choices Discord accepts in one response.
const MaxAutocompleteChoices = 25

// SearchTracksInput contains the input for the SearchTracks use case.
type SearchTracksInput struct {
	Query string
	Limit int // defaults to MaxAutocompleteChoices
}

// SearchTracksOutput contains the output for the SearchTracks use case.
type SearchTracksOutput struct {
	Tracks []*domain.SimpleMetadata
}

// GetQueueTracksInput contains the input for the GetQueueTracks use case.
type GetQueueTracksInput struct {
	GuildID snowflake.ID
}

// GetQueueTracksOutput contains the output for the GetQueueTracks use case.
type GetQueueTracksOutput struct {
	Tracks []*domain.Track
}

// AutocompleteService handles autocomplete-related operations.
type AutocompleteService struct {
	resolver *TrackResolver
	playback *PlaybackService
}

// NewAutocompleteService creates a new AutocompleteService.
func NewAutocompleteService(
	resolver *TrackResolver,
	playback *PlaybackService,
) *AutocompleteService {
	return &AutocompleteService{
		resolver: resolver,
		playback: playback,
	}
}

// SearchTracks suggests tracks for a play query. A track link or id is
// resolved to that single track; anything else is searched.
func (s *AutocompleteService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	ref := domain.ParseTrackReference(input.Query)
	if !ref.IsValid() {
		return &SearchTracksOutput{}, nil
	}

	if !ref.IsSearch() {
		metadata, err := s.resolver.Resolve(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return &SearchTracksOutput{Tracks: []*domain.SimpleMetadata{metadata}}, nil
	}

	limit := input.Limit
	if limit <= 0 || limit > MaxAutocompleteChoices {
		limit = MaxAutocompleteChoices
	}

	tracks, err := s.resolver.Search(ctx, ref.Query, limit)
	if err != nil {
		return nil, err
	}
	return &SearchTracksOutput{Tracks: tracks}, nil
}

// GetQueueTracks returns the upcoming tracks for autocomplete suggestions.
// A guild without a session has no tracks.
func (s *AutocompleteService) GetQueueTracks(
	ctx context.Context,
	input GetQueueTracksInput,
) (*GetQueueTracksOutput, error) {
	output, err := s.playback.QueueList(ctx, QueueListInput{
		GuildID:  input.GuildID,
		Page:     1,
		PageSize: MaxAutocompleteChoices,
	})
	if errors.Is(err, ErrNotConnected) {
		return &GetQueueTracksOutput{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &GetQueueTracksOutput{Tracks: output.Tracks}, nil
}
