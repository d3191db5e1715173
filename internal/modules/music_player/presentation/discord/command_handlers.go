package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebox/internal/bot"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

// DefaultCommandTimeout bounds a single command when no timeout is configured.
const DefaultCommandTimeout = 30 * time.Second

// PlayerService is the application service the command handlers drive.
type PlayerService interface {
	Play(ctx context.Context, input usecases.PlayInput) (*usecases.PlayOutput, error)
	Pause(ctx context.Context, input usecases.GuildInput) error
	Resume(ctx context.Context, input usecases.GuildInput) error
	Next(ctx context.Context, input usecases.GuildInput) error
	Stop(ctx context.Context, input usecases.GuildInput) error
	EmptyQueue(ctx context.Context, input usecases.GuildInput) error
	Shuffle(ctx context.Context, input usecases.GuildInput) error
	Queue(ctx context.Context, input usecases.GuildInput) (*usecases.QueueOutput, error)
}

var _ PlayerService = (*usecases.PlayerService)(nil)

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	player  PlayerService
	timeout time.Duration
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(player PlayerService, timeout time.Duration) *CommandHandlers {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &CommandHandlers{
		player:  player,
		timeout: timeout,
	}
}

// HandlePlay handles the /play command.
// Resolution may outlast the interaction deadline, so the response is deferred and edited.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	input, problem := guildInput(i)
	if problem != "" {
		return respondError(r, problem)
	}

	userID, problem := memberID(i)
	if problem != "" {
		return respondError(r, problem)
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	if err := r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	output, err := h.player.Play(ctx, usecases.PlayInput{
		GuildID:               input.GuildID,
		UserID:                userID,
		NotificationChannelID: input.NotificationChannelID,
		Query:                 query,
	})

	var embeds []*discordgo.MessageEmbed
	if output != nil && len(output.Tracks) > 0 {
		embeds = append(embeds, &discordgo.MessageEmbed{
			Description: describeAdded(output.Tracks),
			Color:       colorSuccess,
		})
	}
	if err != nil {
		embeds = append(embeds, errorEmbed(userMessage(err)))
	}

	return r.Edit(&discordgo.WebhookEdit{Embeds: &embeds})
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleGuildCommand(i, r, h.player.Stop, "Stopped playback.")
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleGuildCommand(i, r, h.player.Pause, "Paused playback.")
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleGuildCommand(i, r, h.player.Resume, "Resumed playback.")
}

// HandleNext handles the /next and /skip commands.
// "Now Playing" is sent by the notification handler.
func (h *CommandHandlers) HandleNext(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleGuildCommand(i, r, h.player.Next, "Skipped.")
}

// HandleEmpty handles the /empty command.
func (h *CommandHandlers) HandleEmpty(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleGuildCommand(i, r, h.player.EmptyQueue, "Emptied the queue.")
}

// HandleShuffle handles the /shuffle command.
func (h *CommandHandlers) HandleShuffle(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleGuildCommand(i, r, h.player.Shuffle, "Shuffled the queue.")
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	input, problem := guildInput(i)
	if problem != "" {
		return respondError(r, problem)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	output, err := h.player.Queue(ctx, input)
	if err != nil {
		return respondError(r, userMessage(err))
	}

	embed := &discordgo.MessageEmbed{
		Title: "Queue",
	}
	if output.Status == domain.StatusPaused {
		embed.Title = "Queue \u23F8\uFE0F" // ⏸️
	}

	if output.Current == nil && output.Pending == 0 {
		embed.Description = "Queue is empty."
		return respondEmbed(r, embed)
	}

	var sb strings.Builder
	if output.Current != nil {
		sb.WriteString("### Now Playing\n")
		writeTrackLine(&sb, 1, *output.Current)
	}
	if len(output.Upcoming) > 0 {
		sb.WriteString("### Up Next\n")
		for idx, track := range output.Upcoming {
			writeTrackLine(&sb, idx+1, track)
		}
	}
	if hidden := output.Pending - len(output.Upcoming); hidden > 0 {
		fmt.Fprintf(&sb, "...and %d more\n", hidden)
	}

	embed.Description = sb.String()
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("%d track(s) in queue", output.Pending),
	}

	return respondEmbed(r, embed)
}

func (h *CommandHandlers) handleGuildCommand(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	run func(context.Context, usecases.GuildInput) error,
	success string,
) error {
	input, problem := guildInput(i)
	if problem != "" {
		return respondError(r, problem)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := run(ctx, input); err != nil {
		return respondError(r, userMessage(err))
	}

	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: success,
		Color:       colorSuccess,
	})
}

// guildInput reads the guild and the channel the command was sent from.
// A non-empty problem is the message to show instead.
func guildInput(i *discordgo.InteractionCreate) (input usecases.GuildInput, problem string) {
	if i.GuildID == "" {
		return input, "This command can only be used in a server."
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return input, "Invalid guild"
	}

	notificationChannelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return input, "Invalid notification channel"
	}

	return usecases.GuildInput{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
	}, ""
}

func memberID(i *discordgo.InteractionCreate) (snowflake.ID, string) {
	if i.Member == nil || i.Member.User == nil {
		return 0, "This command can only be used in a server."
	}

	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return 0, "Invalid user"
	}
	return userID, ""
}

// userMessage turns a use case error into a message for the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, usecases.ErrEmptyQuery):
		return "Please provide a link or a search term."
	case errors.Is(err, usecases.ErrUserNotInVoice):
		return "You must join a voice channel first."
	case errors.Is(err, usecases.ErrNotConnected):
		return "I'm not in a voice channel."
	case errors.Is(err, usecases.ErrNotPlaying):
		return "Nothing is playing."
	case errors.Is(err, usecases.ErrAlreadyPaused):
		return "Playback is already paused."
	case errors.Is(err, usecases.ErrNotPaused):
		return "Playback is not paused."
	case errors.Is(err, domain.ErrNoResults):
		return "No results found."
	case errors.Is(err, domain.ErrEmptyPlaylist):
		return "That playlist has no playable tracks."
	case errors.Is(err, domain.ErrUnrecognizedLink):
		return "That link is not supported."
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "The search quota is used up. Try again later."
	case errors.Is(err, context.DeadlineExceeded):
		return "The command timed out."
	case errors.Is(err, domain.ErrResolution):
		return "Could not resolve the query."
	case errors.Is(err, domain.ErrTransport):
		return "Could not reach the voice channel."
	default:
		return "An error occurred while processing your command."
	}
}

func describeAdded(tracks []domain.Track) string {
	if len(tracks) == 1 {
		track := tracks[0]
		return fmt.Sprintf("Added [%s](%s) to the queue.", track.Title, track.URL)
	}
	return fmt.Sprintf("Added **%d tracks** to the queue.", len(tracks))
}

// Response helpers.

func errorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: message,
		Color:       colorError,
	}
}

func respondError(r bot.Responder, message string) error {
	return respondEmbed(r, errorEmbed(message))
}

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// writeTrackLine writes a single track line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeTrackLine(sb *strings.Builder, displayIndex int, track domain.Track) {
	if artist := track.AuthorName(); artist != "" {
		fmt.Fprintf(sb, "%d\\. [%s](%s) - %s `%s`\n",
			displayIndex, track.Title, track.URL, artist, track.FormattedDuration())
		return
	}
	fmt.Fprintf(sb, "%d\\. [%s](%s) `%s`\n", displayIndex, track.Title, track.URL, track.FormattedDuration())
}
