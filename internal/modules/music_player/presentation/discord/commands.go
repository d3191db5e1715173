package discord

import "github.com/bwmarrin/discordgo"

// Commands returns all slash commands for the music player module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play a track or playlist from a YouTube link or search",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "YouTube link or search term",
					Required:    true,
				},
			},
		},
		{
			Name:        "stop",
			Description: "Stop playback, clear the queue and leave the voice channel",
		},
		{
			Name:        "pause",
			Description: "Pause playback",
		},
		{
			Name:        "resume",
			Description: "Resume playback",
		},
		{
			Name:        "next",
			Description: "Play the next track in the queue",
		},
		{
			Name:        "skip",
			Description: "Skip the current track",
		},
		{
			Name:        "queue",
			Description: "Show the current track and what comes next",
		},
		{
			Name:        "empty",
			Description: "Remove every track from the queue",
		},
		{
			Name:        "shuffle",
			Description: "Shuffle the queue",
		},
	}
}
