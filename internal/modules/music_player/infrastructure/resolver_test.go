package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/raitonoberu/ytmusic"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// countingResolver is a test double for ports.TrackResolver.
type countingResolver struct {
	searches, playlists, items int
}

func (c *countingResolver) ResolveBySearch(context.Context, string) (domain.Track, error) {
	c.searches++
	return domain.NewTrack("Song", domain.VideoURL("abc"), nil, 0), nil
}

func (c *countingResolver) ResolvePlaylist(context.Context, string) ([]domain.Track, error) {
	c.playlists++
	return []domain.Track{domain.NewTrack("Song", domain.VideoURL("abc"), nil, 0)}, nil
}

func (c *countingResolver) ResolveItem(context.Context, string) (domain.Track, error) {
	c.items++
	return domain.NewTrack("Song", domain.VideoURL("abc"), nil, 0), nil
}

func TestRateLimitedResolver_Quota(t *testing.T) {
	inner := &countingResolver{}
	resolver := NewRateLimitedResolver(inner, 150)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	if _, err := resolver.ResolveBySearch(ctx, "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := resolver.ResolveBySearch(ctx, "second")
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if !errors.Is(err, domain.ErrResolution) {
		t.Errorf("expected a resolution failure, got %v", err)
	}

	// Cheap calls still fit in the remaining quota.
	if _, err := resolver.ResolveItem(ctx, "abc"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := resolver.ResolvePlaylist(ctx, "PL1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if inner.searches != 1 || inner.items != 1 || inner.playlists != 1 {
		t.Errorf("unexpected calls: %+v", inner)
	}
}

func TestRateLimitedResolver_CostAboveQuota(t *testing.T) {
	inner := &countingResolver{}
	resolver := NewRateLimitedResolver(inner, SearchCost-1)

	_, err := resolver.ResolveBySearch(t.Context(), "song")

	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}
	if inner.searches != 0 {
		t.Error("expected the inner resolver not to be called")
	}
}

func TestRateLimitedResolver_Cancelled(t *testing.T) {
	resolver := NewRateLimitedResolver(&countingResolver{}, 1000)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := resolver.ResolveItem(ctx, "abc")

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrQuotaExceeded) {
		t.Error("cancellation must not be reported as an exhausted quota")
	}
}

func TestParseClockDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"3:20", 3*time.Minute + 20*time.Second},
		{"1:05:20", time.Hour + 5*time.Minute + 20*time.Second},
		{"0:07", 7 * time.Second},
		{"", 0},
		{"42", 0},
		{"a:b", 0},
		{"1:2:3:4", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseClockDuration(tt.input); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTrackFromYtdlpLine(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantOK     bool
		wantTitle  string
		wantURL    string
		wantAuthor *domain.Author
		wantLength time.Duration
	}{
		{
			name:       "complete entry",
			line:       "abc\tSong\tUploader\tUC123\t213.0",
			wantOK:     true,
			wantTitle:  "Song",
			wantURL:    "https://youtube.com/watch?v=abc",
			wantAuthor: &domain.Author{Name: "Uploader", URL: "https://youtube.com/channel/UC123"},
			wantLength: 213 * time.Second,
		},
		{
			name:      "missing fields",
			line:      "abc\tSong\tNA\tNA\tNA",
			wantOK:    true,
			wantTitle: "Song",
			wantURL:   "https://youtube.com/watch?v=abc",
		},
		{
			name:   "missing id",
			line:   "NA\tSong\tUploader\tUC123\t10",
			wantOK: false,
		},
		{
			name:   "short line",
			line:   "abc\tSong",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, ok := trackFromYtdlpLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if track.Title != tt.wantTitle || track.URL != tt.wantURL {
				t.Errorf("unexpected track %+v", track)
			}
			if (track.Author == nil) != (tt.wantAuthor == nil) {
				t.Fatalf("expected author %v, got %v", tt.wantAuthor, track.Author)
			}
			if tt.wantAuthor != nil && *track.Author != *tt.wantAuthor {
				t.Errorf("expected author %+v, got %+v", *tt.wantAuthor, *track.Author)
			}
			if track.Duration != tt.wantLength {
				t.Errorf("expected duration %v, got %v", tt.wantLength, track.Duration)
			}
		})
	}
}

func TestParseYtdlpOutput(t *testing.T) {
	stdout := "a\tFirst\tX\tNA\t10\nbroken\nb\tSecond\tY\tNA\t20\n"

	tracks := parseYtdlpOutput(stdout)

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].Title != "First" || tracks[1].Title != "Second" {
		t.Errorf("unexpected order: %q, %q", tracks[0].Title, tracks[1].Title)
	}
	if len(parseYtdlpOutput("")) != 0 {
		t.Error("expected no tracks for empty output")
	}
}

func TestTrackMappings(t *testing.T) {
	video := trackFromVideo(&youtube.Video{
		ID:        "vid",
		Title:     "Video",
		Author:    "Channel",
		ChannelID: "UC1",
		Duration:  90 * time.Second,
	})
	if video.URL != domain.VideoURL("vid") || video.Author.URL != domain.ChannelURL("UC1") {
		t.Errorf("unexpected video track %+v", video)
	}

	entry := trackFromPlaylistEntry(&youtube.PlaylistEntry{ID: "e", Title: "Entry", Author: "A"})
	if entry.Title != "Entry" || entry.AuthorName() != "A" {
		t.Errorf("unexpected playlist track %+v", entry)
	}

	music := trackFromMusicItem(&ytmusic.TrackItem{
		VideoID:  "m",
		Title:    "Music",
		Duration: 61,
		Artists:  []ytmusic.Artist{{Name: "Artist", ID: "UC2"}},
	})
	if music.Duration != 61*time.Second || music.Author.URL != domain.ChannelURL("UC2") {
		t.Errorf("unexpected music track %+v", music)
	}

	noArtist := trackFromMusicItem(&ytmusic.TrackItem{VideoID: "m", Title: "Music"})
	if noArtist.Author != nil {
		t.Errorf("expected no author, got %+v", noArtist.Author)
	}

	hit := trackFromSearchResult("s", "Hit", "Channel", "4:01")
	if hit.Duration != 4*time.Minute+time.Second || hit.URL != domain.VideoURL("s") {
		t.Errorf("unexpected search track %+v", hit)
	}
}

func TestParseSearchSource(t *testing.T) {
	tests := []struct {
		input      string
		want       SearchSource
		wantErr    bool
		wantPrefix string
	}{
		{input: "youtube", want: SearchSourceYouTube, wantPrefix: "ytsearch:"},
		{input: "youtube_music", want: SearchSourceYouTubeMusic, wantPrefix: "ytmsearch:"},
		{input: "", want: SearchSourceYouTube, wantPrefix: "ytsearch:"},
		{input: "soundcloud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSearchSource(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if got.LavalinkPrefix() != tt.wantPrefix {
				t.Errorf("expected prefix %q, got %q", tt.wantPrefix, got.LavalinkPrefix())
			}
		})
	}

	if got := SearchSourceYouTubeMusic.YtdlpPrefix(1); got != "ytmsearch1:" {
		t.Errorf("expected ytmsearch1:, got %q", got)
	}
}
