package ports

import (
	"context"

	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// MetadataSource fetches track information from the catalogue API.
type MetadataSource interface {
	// FetchSimple returns the listing subset for a track.
	FetchSimple(ctx context.Context, id domain.TrackID) (*domain.SimpleMetadata, error)

	// FetchFull returns album details as well.
	FetchFull(ctx context.Context, id domain.TrackID) (*domain.FullMetadata, error)

	// Search returns up to limit tracks matching the query, best match first.
	Search(ctx context.Context, query string, limit int) ([]*domain.SimpleMetadata, error)
}

// MetadataCache stores fetched metadata with a time-to-live. The simple and
// full tiers expire independently. Misses and backend failures both
// report ok=false.
type MetadataCache interface {
	GetSimple(ctx context.Context, id domain.TrackID) (*domain.SimpleMetadata, bool)
	SetSimple(ctx context.Context, metadata *domain.SimpleMetadata)
	GetFull(ctx context.Context, id domain.TrackID) (*domain.FullMetadata, bool)
	SetFull(ctx context.Context, metadata *domain.FullMetadata)
}
