package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// YouTubeResolver resolves queries against YouTube without any external process.
// Items and playlists are looked up with the kkdai client; free text is searched
// on YouTube or YouTube Music depending on the configured source.
type YouTubeResolver struct {
	client       *youtube.Client
	searchClient *ytsearch.Client
	source       SearchSource
}

// NewYouTubeResolver creates a new YouTubeResolver.
func NewYouTubeResolver(httpClient *http.Client, source SearchSource) *YouTubeResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &YouTubeResolver{
		client:       &youtube.Client{HTTPClient: httpClient},
		searchClient: ytsearch.NewClient(httpClient),
		source:       source,
	}
}

// ResolveBySearch returns the top search result for the query.
func (r *YouTubeResolver) ResolveBySearch(ctx context.Context, query string) (domain.Track, error) {
	if r.source == SearchSourceYouTubeMusic {
		return r.searchMusic(ctx, query)
	}

	res, err := r.searchClient.Search(ctx, query)
	if err != nil {
		return domain.Track{}, fmt.Errorf("%w: search failed: %w", domain.ErrResolution, err)
	}

	for _, v := range res.Results {
		if v.VideoID == "" {
			continue
		}
		return trackFromSearchResult(v.VideoID, v.Title, v.Channel, v.Duration), nil
	}

	return domain.Track{}, domain.ErrNoResults
}

func (r *YouTubeResolver) searchMusic(ctx context.Context, query string) (domain.Track, error) {
	type result struct {
		tracks []*ytmusic.TrackItem
		err    error
	}

	// The ytmusic client takes no context.
	done := make(chan result, 1)
	go func() {
		res, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{tracks: res.Tracks}
	}()

	select {
	case <-ctx.Done():
		return domain.Track{}, fmt.Errorf("%w: %w", domain.ErrResolution, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return domain.Track{}, fmt.Errorf("%w: music search failed: %w", domain.ErrResolution, res.err)
		}
		for _, item := range res.tracks {
			if item == nil || item.VideoID == "" {
				continue
			}
			return trackFromMusicItem(item), nil
		}
		return domain.Track{}, domain.ErrNoResults
	}
}

// ResolvePlaylist returns the playlist items in order.
func (r *YouTubeResolver) ResolvePlaylist(ctx context.Context, playlistID string) ([]domain.Track, error) {
	playlist, err := r.client.GetPlaylistContext(ctx, domain.PlaylistURL(playlistID))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch playlist: %w", domain.ErrResolution, err)
	}

	tracks := make([]domain.Track, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		tracks = append(tracks, trackFromPlaylistEntry(entry))
	}

	return tracks, nil
}

// ResolveItem returns the track for a single video.
func (r *YouTubeResolver) ResolveItem(ctx context.Context, videoID string) (domain.Track, error) {
	video, err := r.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return domain.Track{}, fmt.Errorf("%w: failed to fetch video: %w", domain.ErrResolution, err)
	}

	return trackFromVideo(video), nil
}

// trackFromVideo maps a kkdai video to a domain track.
func trackFromVideo(video *youtube.Video) domain.Track {
	author := &domain.Author{Name: video.Author}
	if video.ChannelID != "" {
		author.URL = domain.ChannelURL(video.ChannelID)
	}

	return domain.NewTrack(video.Title, domain.VideoURL(video.ID), author, video.Duration)
}

// trackFromPlaylistEntry maps a kkdai playlist entry to a domain track.
func trackFromPlaylistEntry(entry *youtube.PlaylistEntry) domain.Track {
	return domain.NewTrack(
		entry.Title,
		domain.VideoURL(entry.ID),
		&domain.Author{Name: entry.Author},
		entry.Duration,
	)
}

// trackFromMusicItem maps a YouTube Music search hit to a domain track.
func trackFromMusicItem(item *ytmusic.TrackItem) domain.Track {
	var author *domain.Author
	if len(item.Artists) > 0 {
		author = &domain.Author{Name: item.Artists[0].Name}
		if item.Artists[0].ID != "" {
			author.URL = domain.ChannelURL(item.Artists[0].ID)
		}
	}

	return domain.NewTrack(
		item.Title,
		domain.VideoURL(item.VideoID),
		author,
		time.Duration(item.Duration)*time.Second,
	)
}

// trackFromSearchResult maps a YouTube search hit to a domain track.
func trackFromSearchResult(videoID, title, channel, duration string) domain.Track {
	return domain.NewTrack(
		title,
		domain.VideoURL(videoID),
		&domain.Author{Name: channel},
		parseClockDuration(duration),
	)
}

// parseClockDuration parses "m:ss" or "h:mm:ss". Returns 0 for anything else.
func parseClockDuration(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	var total int
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}

	return time.Duration(total) * time.Second
}

// Ensure YouTubeResolver implements ports.TrackResolver.
var _ ports.TrackResolver = (*YouTubeResolver)(nil)
