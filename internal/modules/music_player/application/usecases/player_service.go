package usecases

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// PlayInput contains the input for the Play use case.
type PlayInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	Query                 string
}

// PlayOutput contains the result of the Play use case.
type PlayOutput struct {
	Tracks []domain.Track
}

// GuildInput contains the input for use cases that only act on a guild's player.
type GuildInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueOutput contains the result of the Queue use case.
type QueueOutput struct {
	Status   domain.PlaybackStatus
	Current  *domain.Track
	Upcoming []domain.Track
	Pending  int
}

// PlayerService routes commands to the player of each guild.
type PlayerService struct {
	registry   *PlayerRegistry
	voiceState ports.VoiceStateProvider
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(registry *PlayerRegistry, voiceState ports.VoiceStateProvider) *PlayerService {
	return &PlayerService{
		registry:   registry,
		voiceState: voiceState,
	}
}

// Play resolves the query into the guild's queue and starts playback in the user's voice channel.
func (s *PlayerService) Play(ctx context.Context, input PlayInput) (*PlayOutput, error) {
	if domain.ParseQuery(input.Query).IsEmpty() {
		return nil, ErrEmptyQuery
	}

	voiceChannelID, err := s.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
	if err != nil {
		slog.Warn("failed to look up user voice channel",
			"guild", input.GuildID,
			"user", input.UserID,
			"error", err,
		)
		voiceChannelID = 0
	}

	player := s.registry.Get(input.GuildID)
	if player == nil {
		return nil, ErrPlayerClosed
	}

	tracks, err := player.Play(ctx, PlayerPlayInput{
		Query:                 input.Query,
		VoiceChannelID:        voiceChannelID,
		NotificationChannelID: input.NotificationChannelID,
		RequesterID:           input.UserID,
	})

	return &PlayOutput{Tracks: tracks}, err
}

// Pause pauses the guild's playback.
func (s *PlayerService) Pause(ctx context.Context, input GuildInput) error {
	player, ok := s.registry.Lookup(input.GuildID)
	if !ok {
		return ErrNotPlaying
	}
	return player.Pause(ctx, input.NotificationChannelID)
}

// Resume resumes the guild's playback.
func (s *PlayerService) Resume(ctx context.Context, input GuildInput) error {
	player, ok := s.registry.Lookup(input.GuildID)
	if !ok {
		return ErrNotPlaying
	}
	return player.Resume(ctx, input.NotificationChannelID)
}

// Next skips to the next track in the guild's queue.
func (s *PlayerService) Next(ctx context.Context, input GuildInput) error {
	player, ok := s.registry.Lookup(input.GuildID)
	if !ok {
		return ErrNotConnected
	}
	return player.Next(ctx, input.NotificationChannelID)
}

// Stop clears the guild's queue and leaves the voice channel.
func (s *PlayerService) Stop(ctx context.Context, input GuildInput) error {
	player, ok := s.registry.Lookup(input.GuildID)
	if !ok {
		return nil
	}
	return player.Stop(ctx, input.NotificationChannelID)
}

// EmptyQueue clears the guild's pending tracks.
func (s *PlayerService) EmptyQueue(ctx context.Context, input GuildInput) error {
	player, ok := s.registry.Lookup(input.GuildID)
	if !ok {
		return nil
	}
	return player.EmptyQueue(ctx, input.NotificationChannelID)
}

// Shuffle shuffles the guild's pending tracks.
func (s *PlayerService) Shuffle(ctx context.Context, input GuildInput) error {
	player, ok := s.registry.Lookup(input.GuildID)
	if !ok {
		return nil
	}
	return player.Shuffle(ctx, input.NotificationChannelID)
}

// Queue returns what the guild's player is playing and what comes next.
func (s *PlayerService) Queue(ctx context.Context, input GuildInput) (*QueueOutput, error) {
	player, ok := s.registry.Lookup(input.GuildID)
	if !ok {
		return &QueueOutput{Status: domain.StatusOff}, nil
	}

	snapshot, err := player.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return &QueueOutput{
		Status:   snapshot.Status,
		Current:  snapshot.Current,
		Upcoming: snapshot.Upcoming,
		Pending:  snapshot.Pending,
	}, nil
}
