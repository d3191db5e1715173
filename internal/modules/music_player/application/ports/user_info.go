package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// UserInfo contains display information for the user who requested tracks.
type UserInfo struct {
	ID          snowflake.ID
	DisplayName string
	AvatarURL   string
}

// UserInfoProvider defines the interface for looking up guild members.
type UserInfoProvider interface {
	// GetUserInfo returns display info for the member, preferring cached state.
	GetUserInfo(guildID, userID snowflake.ID) (*UserInfo, error)
}
