package infrastructure

import "fmt"

// SearchSource selects the catalogue free-text queries are searched in.
type SearchSource string

const (
	SearchSourceYouTube      SearchSource = "youtube"
	SearchSourceYouTubeMusic SearchSource = "youtube_music"
)

// ParseSearchSource parses a configured search source name.
func ParseSearchSource(s string) (SearchSource, error) {
	switch source := SearchSource(s); source {
	case SearchSourceYouTube, SearchSourceYouTubeMusic:
		return source, nil
	case "":
		return SearchSourceYouTube, nil
	default:
		return "", fmt.Errorf("unknown search source %q", s)
	}
}

// LavalinkPrefix returns the Lavalink search identifier prefix for the source.
func (s SearchSource) LavalinkPrefix() string {
	if s == SearchSourceYouTubeMusic {
		return "ytmsearch:"
	}
	return "ytsearch:"
}

// YtdlpPrefix returns the yt-dlp search URL prefix returning n results.
func (s SearchSource) YtdlpPrefix(n int) string {
	if s == SearchSourceYouTubeMusic {
		return fmt.Sprintf("ytmsearch%d:", n)
	}
	return fmt.Sprintf("ytsearch%d:", n)
}
