package domain

// PlaybackStatus represents the playback status of a player.
type PlaybackStatus int

const (
	StatusOff     PlaybackStatus = iota // No connection, nothing playing
	StatusPlaying                       // A track is being streamed
	StatusPaused                        // A track is loaded but paused
)

// String returns a human-readable representation of the playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "off"
	}
}

// IsActive returns true if a track is loaded, playing or paused.
func (s PlaybackStatus) IsActive() bool {
	return s == StatusPlaying || s == StatusPaused
}
