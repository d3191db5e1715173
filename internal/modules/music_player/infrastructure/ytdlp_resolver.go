package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// ytdlpPrintFormat is the tab-separated line yt-dlp prints for every entry.
const ytdlpPrintFormat = "%(id)s\t%(title)s\t%(uploader)s\t%(channel_id)s\t%(duration)s"

// ytdlpMissing is what yt-dlp prints for an absent field.
const ytdlpMissing = "NA"

// YtdlpResolver resolves queries by running yt-dlp.
// It requires a yt-dlp executable on PATH.
type YtdlpResolver struct {
	source      SearchSource
	maxPlaylist int
}

// NewYtdlpResolver creates a new YtdlpResolver.
// maxPlaylist caps the number of playlist entries read; zero means no cap.
func NewYtdlpResolver(source SearchSource, maxPlaylist int) *YtdlpResolver {
	return &YtdlpResolver{
		source:      source,
		maxPlaylist: maxPlaylist,
	}
}

func newYtdlpCommand() *ytdlp.Command {
	return ytdlp.New().
		Print(ytdlpPrintFormat).
		NoWarnings().
		IgnoreConfig()
}

// ResolveBySearch returns the top search result for the query.
func (r *YtdlpResolver) ResolveBySearch(ctx context.Context, query string) (domain.Track, error) {
	res, err := newYtdlpCommand().
		FlatPlaylist().
		PlaylistItems("1").
		Run(ctx, r.source.YtdlpPrefix(1)+query)
	if err != nil {
		return domain.Track{}, fmt.Errorf("%w: yt-dlp search failed: %w", domain.ErrResolution, err)
	}

	tracks := parseYtdlpOutput(res.Stdout)
	if len(tracks) == 0 {
		return domain.Track{}, domain.ErrNoResults
	}

	return tracks[0], nil
}

// ResolvePlaylist returns the playlist entries in order.
func (r *YtdlpResolver) ResolvePlaylist(ctx context.Context, playlistID string) ([]domain.Track, error) {
	cmd := newYtdlpCommand().FlatPlaylist()
	if r.maxPlaylist > 0 {
		cmd = cmd.PlaylistItems(fmt.Sprintf("1-%d", r.maxPlaylist))
	}

	res, err := cmd.Run(ctx, domain.PlaylistURL(playlistID))
	if err != nil {
		return nil, fmt.Errorf("%w: yt-dlp playlist lookup failed: %w", domain.ErrResolution, err)
	}

	return parseYtdlpOutput(res.Stdout), nil
}

// ResolveItem returns the track for a single video.
func (r *YtdlpResolver) ResolveItem(ctx context.Context, videoID string) (domain.Track, error) {
	res, err := newYtdlpCommand().
		NoPlaylist().
		Run(ctx, domain.VideoURL(videoID))
	if err != nil {
		return domain.Track{}, fmt.Errorf("%w: yt-dlp lookup failed: %w", domain.ErrResolution, err)
	}

	tracks := parseYtdlpOutput(res.Stdout)
	if len(tracks) == 0 {
		return domain.Track{}, domain.ErrNoResults
	}

	return tracks[0], nil
}

// parseYtdlpOutput parses every well-formed line printed with ytdlpPrintFormat.
func parseYtdlpOutput(stdout string) []domain.Track {
	var tracks []domain.Track
	for line := range strings.SplitSeq(strings.TrimSpace(stdout), "\n") {
		if track, ok := trackFromYtdlpLine(line); ok {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

// trackFromYtdlpLine maps one printed yt-dlp entry to a domain track.
func trackFromYtdlpLine(line string) (domain.Track, bool) {
	fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
	if len(fields) < 5 {
		return domain.Track{}, false
	}
	for i, f := range fields {
		if f == ytdlpMissing {
			fields[i] = ""
		}
	}

	id, title, uploader, channelID, duration := fields[0], fields[1], fields[2], fields[3], fields[4]
	if id == "" {
		return domain.Track{}, false
	}

	author := &domain.Author{Name: uploader}
	if channelID != "" {
		author.URL = domain.ChannelURL(channelID)
	}

	var length time.Duration
	if seconds, err := strconv.ParseFloat(duration, 64); err == nil && seconds > 0 {
		length = time.Duration(seconds * float64(time.Second))
	}

	return domain.NewTrack(title, domain.VideoURL(id), author, length), true
}

// Ensure YtdlpResolver implements ports.TrackResolver.
var _ ports.TrackResolver = (*YtdlpResolver)(nil)
