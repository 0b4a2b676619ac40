package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// maxArtWidth is the widest album image used as an embed thumbnail.
	maxArtWidth = 300
	// maxSearchLimit is the most results the search endpoint returns per page.
	maxSearchLimit = 50
)

// ErrTrackNotFound is returned when the catalogue has no such track.
var ErrTrackNotFound = errors.New("track not found")

// SpotifyConfig contains Spotify Web API credentials.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

// SpotifyMetadataSource implements ports.MetadataSource with the Spotify Web API.
type SpotifyMetadataSource struct {
	client *spotify.Client
}

// NewSpotifyMetadataSource creates a source authenticated with the client
// credentials flow. Tokens are refreshed on demand.
func NewSpotifyMetadataSource(ctx context.Context, config SpotifyConfig) *SpotifyMetadataSource {
	auth := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return NewSpotifyMetadataSourceWithClient(auth.Client(ctx))
}

// NewSpotifyMetadataSourceWithClient creates a source that sends requests
// through httpClient.
func NewSpotifyMetadataSourceWithClient(httpClient *http.Client, opts ...spotify.ClientOption) *SpotifyMetadataSource {
	return &SpotifyMetadataSource{client: spotify.New(httpClient, opts...)}
}

// FetchSimple returns the listing subset for a track.
func (s *SpotifyMetadataSource) FetchSimple(
	ctx context.Context,
	id domain.TrackID,
) (*domain.SimpleMetadata, error) {
	track, err := s.getTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	return simpleFromSpotify(track), nil
}

// FetchFull returns the track together with its album details.
func (s *SpotifyMetadataSource) FetchFull(
	ctx context.Context,
	id domain.TrackID,
) (*domain.FullMetadata, error) {
	track, err := s.getTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	return fullFromSpotify(track), nil
}

// Search returns up to limit tracks matching query.
func (s *SpotifyMetadataSource) Search(
	ctx context.Context,
	query string,
	limit int,
) ([]*domain.SimpleMetadata, error) {
	limit = min(max(limit, 1), maxSearchLimit)

	results, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if results.Tracks == nil {
		return nil, nil
	}

	tracks := make([]*domain.SimpleMetadata, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		tracks = append(tracks, simpleFromSpotify(&results.Tracks.Tracks[i]))
	}
	return tracks, nil
}

func (s *SpotifyMetadataSource) getTrack(ctx context.Context, id domain.TrackID) (*spotify.FullTrack, error) {
	track, err := s.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		var spotifyErr spotify.Error
		if errors.As(err, &spotifyErr) && spotifyErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
		}
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	return track, nil
}

func simpleFromSpotify(track *spotify.FullTrack) *domain.SimpleMetadata {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	return &domain.SimpleMetadata{
		ID:       domain.TrackID(track.ID),
		Name:     track.Name,
		Artists:  artists,
		Duration: time.Duration(track.Duration) * time.Millisecond,
		Explicit: track.Explicit,
		URL:      track.ExternalURLs["spotify"],
	}
}

func fullFromSpotify(track *spotify.FullTrack) *domain.FullMetadata {
	return &domain.FullMetadata{
		SimpleMetadata: *simpleFromSpotify(track),
		Album:          track.Album.Name,
		ArtURL:         albumArtURL(track.Album.Images),
		URI:            string(track.URI),
		Released:       track.Album.ReleaseDate,
	}
}

// albumArtURL picks the first image no wider than maxArtWidth. Images are
// listed widest first.
func albumArtURL(images []spotify.Image) string {
	for _, image := range images {
		if image.Width <= maxArtWidth {
			return image.URL
		}
	}
	if len(images) > 0 {
		return images[len(images)-1].URL
	}
	return ""
}

// Ensure SpotifyMetadataSource implements ports.MetadataSource.
var _ ports.MetadataSource = (*SpotifyMetadataSource)(nil)
