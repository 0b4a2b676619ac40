package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/application/session"
	"github.com/sglre6355/sgrplay/internal/modules/music_player/domain"
)

// prefetchTimeout bounds one background resource preparation.
const prefetchTimeout = 2 * time.Minute

// TrackResolver turns track ids into metadata and playable resources.
// Metadata is served from the cache when fresh. Concurrent misses for the
// same id each go to the source.
type TrackResolver struct {
	source        ports.MetadataSource
	cache         ports.MetadataCache
	loader        ports.ResourceLoader
	downloaderURL string
}

// NewTrackResolver creates a new TrackResolver.
func NewTrackResolver(
	source ports.MetadataSource,
	cache ports.MetadataCache,
	loader ports.ResourceLoader,
	downloaderURL string,
) *TrackResolver {
	return &TrackResolver{
		source:        source,
		cache:         cache,
		loader:        loader,
		downloaderURL: strings.TrimRight(downloaderURL, "/"),
	}
}

// Resolve returns the simple metadata of a track.
func (r *TrackResolver) Resolve(ctx context.Context, id domain.TrackID) (*domain.SimpleMetadata, error) {
	if metadata, ok := r.cache.GetSimple(ctx, id); ok {
		return metadata, nil
	}

	metadata, err := r.source.FetchSimple(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track %s: %w", id, err)
	}

	r.cache.SetSimple(ctx, metadata)
	return metadata, nil
}

// ResolveFull returns the full metadata of a track. A fetch populates both
// cache tiers.
func (r *TrackResolver) ResolveFull(ctx context.Context, id domain.TrackID) (*domain.FullMetadata, error) {
	if metadata, ok := r.cache.GetFull(ctx, id); ok {
		return metadata, nil
	}

	metadata, err := r.source.FetchFull(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track %s: %w", id, err)
	}

	r.cache.SetFull(ctx, metadata)
	r.cache.SetSimple(ctx, metadata.Simple())
	return metadata, nil
}

// Search returns up to limit tracks matching query. Results are cached so
// a following Resolve of a chosen result is a hit.
func (r *TrackResolver) Search(
	ctx context.Context,
	query string,
	limit int,
) ([]*domain.SimpleMetadata, error) {
	results, err := r.source.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}

	for _, metadata := range results {
		r.cache.SetSimple(ctx, metadata)
	}
	return results, nil
}

// StreamURL returns the downloader URL serving the track's audio.
func (r *TrackResolver) StreamURL(id domain.TrackID) string {
	return r.downloaderURL + "/track/" + string(id)
}

// Prepare returns a playable resource for track. A successful prefetch is
// consumed; otherwise the resource is loaded now.
func (r *TrackResolver) Prepare(ctx context.Context, track *domain.Track) (domain.Resource, error) {
	if prefetch := track.Prefetch(); prefetch != nil {
		resource, err := prefetch.Wait(ctx)
		if err == nil && !resource.IsZero() {
			return resource, nil
		}
		if ctx.Err() != nil {
			return domain.Resource{}, ctx.Err()
		}
		slog.Debug("prefetch failed, loading again", "track", track.ID, "error", err)
	}

	return r.load(ctx, track.ID)
}

// Prefetch starts loading the track's resource in the background. At most
// one prefetch is attached to a track.
func (r *TrackResolver) Prefetch(track *domain.Track) {
	prefetch := domain.NewPrefetch()
	if !track.AttachPrefetch(prefetch) {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
		defer cancel()

		resource, err := r.load(ctx, track.ID)
		if err != nil {
			slog.Debug("prefetch failed", "track", track.ID, "error", err)
		}
		prefetch.Complete(resource, err)
	}()
}

func (r *TrackResolver) load(ctx context.Context, id domain.TrackID) (domain.Resource, error) {
	encoded, err := r.loader.LoadResource(ctx, r.StreamURL(id))
	if err != nil {
		return domain.Resource{}, fmt.Errorf("failed to load track %s: %w", id, err)
	}
	return domain.Resource{TrackID: id, Encoded: encoded}, nil
}

// Ensure TrackResolver can prepare session resources.
var _ session.ResourcePreparer = (*TrackResolver)(nil)
