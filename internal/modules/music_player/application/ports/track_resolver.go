package ports

import (
	"context"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// TrackResolver defines the interface for turning query identifiers into tracks.
// Misses are reported as errors wrapping domain.ErrResolution.
type TrackResolver interface {
	// ResolveBySearch returns the top search result for the given text.
	ResolveBySearch(ctx context.Context, query string) (domain.Track, error)

	// ResolvePlaylist returns the playlist items in order, skipping items
	// whose metadata cannot be resolved.
	ResolvePlaylist(ctx context.Context, playlistID string) ([]domain.Track, error)

	// ResolveItem returns the track for a single video id.
	ResolveItem(ctx context.Context, videoID string) (domain.Track, error)
}
