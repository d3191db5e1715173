package domain

import (
	"strconv"
	"time"
)

// Author describes who published a track.
// Empty fields mean the resolver could not provide them.
type Author struct {
	Name string
	URL  string
}

// Track represents a playable audio track.
// Tracks are values: they are created by a resolver and never mutated afterwards.
type Track struct {
	Title    string
	URL      string  // Canonical URL, resolvable by the audio source opener
	Author   *Author // nil when the source has no author metadata
	Duration time.Duration
}

// NewTrack creates a new Track with the given parameters.
// A nil author is kept as nil; an author with no name and no URL is dropped.
func NewTrack(title, url string, author *Author, duration time.Duration) Track {
	if author != nil && author.Name == "" && author.URL == "" {
		author = nil
	}
	if author != nil {
		copied := *author
		author = &copied
	}

	return Track{
		Title:    title,
		URL:      url,
		Author:   author,
		Duration: duration,
	}
}

// IsValid returns true if the track has the minimum required fields.
func (t Track) IsValid() bool {
	return t.Title != "" && t.URL != ""
}

// AuthorName returns the author name, or an empty string if unknown.
func (t Track) AuthorName() string {
	if t.Author == nil {
		return ""
	}
	return t.Author.Name
}

// FormattedDuration returns the duration as a human-readable string (mm:ss or hh:mm:ss).
// Unknown durations are reported as "--:--".
func (t Track) FormattedDuration() string {
	if t.Duration <= 0 {
		return "--:--"
	}

	totalSeconds := int(t.Duration.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
