package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// Quota units charged per resolver call.
const (
	SearchCost   = 100
	ItemCost     = 1
	PlaylistCost = 1
)

// RateLimitedResolver charges every resolution against a quota shared by all guilds.
// The quota refills continuously over a day. A call that cannot be paid for
// before its context expires fails with domain.ErrQuotaExceeded.
type RateLimitedResolver struct {
	next    ports.TrackResolver
	limiter *rate.Limiter
}

// NewRateLimitedResolver wraps next with a quota of quotaPerDay units.
func NewRateLimitedResolver(next ports.TrackResolver, quotaPerDay int) *RateLimitedResolver {
	perSecond := rate.Limit(float64(quotaPerDay) / (24 * time.Hour).Seconds())

	return &RateLimitedResolver{
		next:    next,
		limiter: rate.NewLimiter(perSecond, quotaPerDay),
	}
}

func (r *RateLimitedResolver) charge(ctx context.Context, cost int, op string) error {
	if err := r.limiter.WaitN(ctx, cost); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", domain.ErrResolution, ctxErr)
		}
		slog.Warn("resolution quota exhausted", "operation", op, "cost", cost)
		return domain.ErrQuotaExceeded
	}
	return nil
}

// ResolveBySearch charges SearchCost units, then searches.
func (r *RateLimitedResolver) ResolveBySearch(ctx context.Context, query string) (domain.Track, error) {
	if err := r.charge(ctx, SearchCost, "search"); err != nil {
		return domain.Track{}, err
	}
	return r.next.ResolveBySearch(ctx, query)
}

// ResolvePlaylist charges PlaylistCost units, then looks up the playlist.
func (r *RateLimitedResolver) ResolvePlaylist(ctx context.Context, playlistID string) ([]domain.Track, error) {
	if err := r.charge(ctx, PlaylistCost, "playlist"); err != nil {
		return nil, err
	}
	return r.next.ResolvePlaylist(ctx, playlistID)
}

// ResolveItem charges ItemCost units, then looks up the item.
func (r *RateLimitedResolver) ResolveItem(ctx context.Context, videoID string) (domain.Track, error) {
	if err := r.charge(ctx, ItemCost, "item"); err != nil {
		return domain.Track{}, err
	}
	return r.next.ResolveItem(ctx, videoID)
}

// Ensure RateLimitedResolver implements ports.TrackResolver.
var _ ports.TrackResolver = (*RateLimitedResolver)(nil)
