package ports

import (
	"context"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// AudioSource is a track prepared for streaming.
type AudioSource struct {
	Track   domain.Track
	Encoded string // Transport-specific encoded form of the track
}

// AudioSourceOpener defines the interface for preparing tracks for streaming.
type AudioSourceOpener interface {
	// OpenAudioSource returns a source for the track.
	// A nil source with a nil error means the track is unavailable.
	OpenAudioSource(ctx context.Context, track domain.Track) (*AudioSource, error)
}
