package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// QueryDispatcher classifies raw queries and resolves them into tracks.
type QueryDispatcher struct {
	resolver ports.TrackResolver
}

// NewQueryDispatcher creates a new QueryDispatcher.
func NewQueryDispatcher(resolver ports.TrackResolver) *QueryDispatcher {
	return &QueryDispatcher{
		resolver: resolver,
	}
}

// Resolve classifies the query and returns the tracks it designates.
// Search and item queries yield exactly one track, playlist queries at least one.
// Every failure wraps domain.ErrResolution.
func (d *QueryDispatcher) Resolve(ctx context.Context, raw string) ([]domain.Track, error) {
	query := domain.ParseQuery(raw)

	slog.Debug("dispatching query", "kind", query.Kind, "id", query.ID)

	switch query.Kind {
	case domain.QueryKindSearch:
		track, err := d.resolver.ResolveBySearch(ctx, query.ID)
		if err != nil {
			return nil, resolutionError(err)
		}
		if !track.IsValid() {
			return nil, domain.ErrNoResults
		}
		return []domain.Track{track}, nil

	case domain.QueryKindPlaylist:
		tracks, err := d.resolver.ResolvePlaylist(ctx, query.ID)
		if err != nil {
			return nil, resolutionError(err)
		}
		valid := make([]domain.Track, 0, len(tracks))
		for _, track := range tracks {
			if track.IsValid() {
				valid = append(valid, track)
			}
		}
		if len(valid) == 0 {
			return nil, domain.ErrEmptyPlaylist
		}
		return valid, nil

	case domain.QueryKindItem:
		track, err := d.resolver.ResolveItem(ctx, query.ID)
		if err != nil {
			return nil, resolutionError(err)
		}
		if !track.IsValid() {
			return nil, domain.ErrNoResults
		}
		return []domain.Track{track}, nil

	default:
		return nil, domain.ErrUnrecognizedLink
	}
}

// resolutionError ensures resolver failures are classified as resolution failures.
func resolutionError(err error) error {
	if errors.Is(err, domain.ErrResolution) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrResolution, err)
}
