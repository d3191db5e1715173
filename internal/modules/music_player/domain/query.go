package domain

import (
	"regexp"
	"strings"
)

// QueryKind represents how a raw query string should be resolved.
type QueryKind int

const (
	QueryKindSearch       QueryKind = iota // Free text, resolved by search
	QueryKindPlaylist                      // Platform link carrying a playlist id
	QueryKindItem                          // Platform link carrying a single video id
	QueryKindUnrecognized                  // Platform link with no usable id
)

// String returns a human-readable representation of the query kind.
func (k QueryKind) String() string {
	switch k {
	case QueryKindSearch:
		return "search"
	case QueryKindPlaylist:
		return "playlist"
	case QueryKindItem:
		return "item"
	default:
		return "unrecognized"
	}
}

var (
	platformURLPattern = regexp.MustCompile(`(?i)(https://)?(www\.)?(youtube\.com|youtu\.?be)/.+`)
	playlistIDPattern  = regexp.MustCompile(`list=([\w-]+)`)
	itemIDPattern      = regexp.MustCompile(`v=([\w-]+)`)
	shortLinkPattern   = regexp.MustCompile(`(?i)youtu\.be/([\w-]+)`)
)

// Query is a classified user query.
// For search queries ID holds the search text; otherwise it holds the extracted identifier.
type Query struct {
	Raw  string
	Kind QueryKind
	ID   string
}

// ParseQuery classifies a raw query string.
// A link carrying both a playlist id and a video id is classified as a playlist.
func ParseQuery(input string) Query {
	input = strings.TrimSpace(input)

	if !platformURLPattern.MatchString(input) {
		return Query{Raw: input, Kind: QueryKindSearch, ID: input}
	}

	if m := playlistIDPattern.FindStringSubmatch(input); m != nil {
		return Query{Raw: input, Kind: QueryKindPlaylist, ID: m[1]}
	}
	if m := itemIDPattern.FindStringSubmatch(input); m != nil {
		return Query{Raw: input, Kind: QueryKindItem, ID: m[1]}
	}
	if m := shortLinkPattern.FindStringSubmatch(input); m != nil {
		return Query{Raw: input, Kind: QueryKindItem, ID: m[1]}
	}

	return Query{Raw: input, Kind: QueryKindUnrecognized}
}

// IsEmpty returns true if the query has no content.
func (q Query) IsEmpty() bool {
	return q.Raw == ""
}

// VideoURL returns the canonical watch URL for a video id.
func VideoURL(id string) string {
	return "https://youtube.com/watch?v=" + id
}

// PlaylistURL returns the canonical URL for a playlist id.
func PlaylistURL(id string) string {
	return "https://youtube.com/playlist?list=" + id
}

// ChannelURL returns the canonical URL for a channel id.
func ChannelURL(id string) string {
	return "https://youtube.com/channel/" + id
}

// VideoIDFromURL extracts the video id from a canonical or short watch URL.
// Returns false if the URL carries no video id.
func VideoIDFromURL(url string) (string, bool) {
	if m := itemIDPattern.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	if m := shortLinkPattern.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	return "", false
}
