package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed     = 0xE74C3C
	colorYouTube = 0xFF0000
	colorInfo    = 0x5865F2
)

const youTubeIconURL = "https://www.youtube.com/s/desktop/favicon.ico"

// maxEmbedDescription is Discord's limit on embed description length.
const maxEmbedDescription = 4096

// Notifier sends notifications to Discord channels.
type Notifier struct {
	session    *discordgo.Session
	httpClient *http.Client
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session: session,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendNowPlaying sends a "Now Playing" embed with the upcoming tracks to the channel.
func (n *Notifier) SendNowPlaying(
	channelID snowflake.ID,
	track domain.Track,
	upcoming []domain.Track,
) error {
	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    "Now Playing",
			IconURL: youTubeIconURL,
		},
		Title:     track.Title,
		URL:       track.URL,
		Color:     colorYouTube,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Duration",
				Value:  track.FormattedDuration(),
				Inline: true,
			},
		},
	}

	if track.Author != nil {
		value := track.Author.Name
		if track.Author.URL != "" {
			value = fmt.Sprintf("[%s](%s)", track.Author.Name, track.Author.URL)
		}
		embed.Fields = append([]*discordgo.MessageEmbedField{{
			Name:   "Artist",
			Value:  value,
			Inline: true,
		}}, embed.Fields...)
	}

	if len(upcoming) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Up Next",
			Value: FormatTrackList(upcoming, 1024),
		})
	}

	if videoID, ok := domain.VideoIDFromURL(track.URL); ok {
		if thumbnailURL := n.getYouTubeThumbnail(videoID); thumbnailURL != "" {
			embed.Image = &discordgo.MessageEmbedImage{
				URL: thumbnailURL,
			}
		}
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// SendTracksAdded sends an "Added to Queue" embed to the channel.
func (n *Notifier) SendTracksAdded(
	channelID snowflake.ID,
	tracks []domain.Track,
	requester *ports.UserInfo,
) error {
	var description string
	if len(tracks) == 1 {
		description = fmt.Sprintf("Added **%s** to the queue.", tracks[0].Title)
	} else {
		description = fmt.Sprintf("Added %d tracks to the queue.\n\n%s",
			len(tracks), FormatTrackList(tracks, maxEmbedDescription-64))
	}

	embed := &discordgo.MessageEmbed{
		Description: description,
	}

	if requester != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("Requested by %s", requester.DisplayName),
			IconURL: requester.AvatarURL,
		}
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// SendInfo sends a neutral message embed to the channel.
func (n *Notifier) SendInfo(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorInfo,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// FormatTrackList renders tracks as a numbered list that fits in limit characters.
// Tracks that do not fit are summarized in a trailing line.
func FormatTrackList(tracks []domain.Track, limit int) string {
	var b strings.Builder

	for i, track := range tracks {
		line := fmt.Sprintf("%d. [%s](%s) `%s`\n", i+1, track.Title, track.URL, track.FormattedDuration())
		more := fmt.Sprintf("...and %d more", len(tracks)-i)

		if b.Len()+len(line)+len(more) > limit {
			b.WriteString(more)
			return b.String()
		}
		b.WriteString(line)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// getYouTubeThumbnail tries to find the highest quality YouTube thumbnail available.
func (n *Notifier) getYouTubeThumbnail(videoID string) string {
	qualities := []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, quality := range qualities {
		url := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", videoID, quality)
		if n.urlExists(ctx, url) {
			return url
		}
	}

	return ""
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
