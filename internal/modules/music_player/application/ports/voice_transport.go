package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// Connection is an established voice connection owned by the transport.
// Its identity is the pointer: a reconnect yields a new Connection.
type Connection struct {
	GuildID     snowflake.ID
	ChannelID   snowflake.ID
	ChannelName string
}

// PlaybackHandle represents one in-flight audio send.
type PlaybackHandle struct {
	ID         string
	Connection *Connection
	Source     *AudioSource
}

// StreamCallbacks are invoked by the transport when a stream terminates.
// At most one of them is invoked per PlaybackHandle. They may be called from any goroutine.
type StreamCallbacks struct {
	OnEnd   func()
	OnError func(err error)
}

// VoiceTransport defines the interface for voice channel and audio stream operations.
type VoiceTransport interface {
	// Connect joins the voice channel. onDisconnect is called once if the
	// connection is later dropped without Disconnect being called.
	Connect(
		ctx context.Context,
		guildID, channelID snowflake.ID,
		onDisconnect func(),
	) (*Connection, error)

	// Disconnect leaves the voice channel of the connection.
	Disconnect(ctx context.Context, conn *Connection) error

	// SendAudio starts streaming the source over the connection,
	// replacing any stream already running on it.
	SendAudio(
		ctx context.Context,
		conn *Connection,
		source *AudioSource,
		callbacks StreamCallbacks,
	) (*PlaybackHandle, error)

	// Pause pauses the stream of the handle.
	Pause(ctx context.Context, handle *PlaybackHandle) error

	// Resume resumes the stream of the handle.
	Resume(ctx context.Context, handle *PlaybackHandle) error
}
