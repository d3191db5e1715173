package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// Room identifies where a player lives and where its notifications go.
type Room struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
}

// Target returns the room an event is addressed to.
func (r Room) Target() Room {
	return r
}

// Event is a structured notification emitted by a player.
// The player never formats user-facing text; subscribers render events.
type Event interface {
	Target() Room
}

// ConnectedEvent is published when the bot joins a voice channel.
type ConnectedEvent struct {
	Room
	VoiceChannelID   snowflake.ID
	VoiceChannelName string
}

// ConnectFailedEvent is published when the bot could not join a voice channel.
type ConnectFailedEvent struct {
	Room
	Err error
}

// DisconnectedEvent is published when the bot leaves a voice channel,
// either on request or because it was removed out-of-band.
type DisconnectedEvent struct {
	Room
	External bool
}

// TracksAddedEvent is published when tracks are appended to the queue.
type TracksAddedEvent struct {
	Room
	Tracks      []Track
	RequesterID snowflake.ID
}

// TrackUnavailableEvent is published when no audio source could be opened for a track.
type TrackUnavailableEvent struct {
	Room
	Track Track
	Err   error
}

// QueueEmptyEvent is published when playback advances past the last queued track.
type QueueEmptyEvent struct {
	Room
}

// QueueClearedEvent is published when the queue is emptied on request.
type QueueClearedEvent struct {
	Room
	Removed int
}

// QueueShuffledEvent is published when the pending tracks are shuffled.
type QueueShuffledEvent struct {
	Room
	Count int
}

// NowPlayingEvent is published when a track starts streaming.
type NowPlayingEvent struct {
	Room
	Track    Track
	Upcoming []Track
}

// PlaybackErrorEvent is published when a stream fails to start or fails while playing.
type PlaybackErrorEvent struct {
	Room
	Track *Track
	Err   error
}
