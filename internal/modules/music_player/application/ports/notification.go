package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// NotificationSender defines the interface for rendering player notifications into Discord channels.
type NotificationSender interface {
	// SendNowPlaying sends a "Now Playing" embed with the upcoming tracks.
	SendNowPlaying(channelID snowflake.ID, track domain.Track, upcoming []domain.Track) error

	// SendTracksAdded sends an "Added to Queue" embed.
	// requester is nil when the requesting user is unknown.
	SendTracksAdded(channelID snowflake.ID, tracks []domain.Track, requester *UserInfo) error

	// SendInfo sends a neutral informational embed.
	SendInfo(channelID snowflake.ID, message string) error

	// SendError sends an error message embed to the channel.
	SendError(channelID snowflake.ID, message string) error
}
