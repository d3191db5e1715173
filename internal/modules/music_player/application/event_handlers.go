package application

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// NotificationEventHandler renders player events into the notification channel of their room.
type NotificationEventHandler struct {
	subscriber       ports.EventSubscriber
	notifier         ports.NotificationSender
	userInfoProvider ports.UserInfoProvider
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	subscriber ports.EventSubscriber,
	notifier ports.NotificationSender,
	userInfoProvider ports.UserInfoProvider,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		subscriber:       subscriber,
		notifier:         notifier,
		userInfoProvider: userInfoProvider,
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() error {
	handlers := map[reflect.Type]func(context.Context, domain.Event) error{
		reflect.TypeFor[domain.ConnectedEvent]():        h.handleConnected,
		reflect.TypeFor[domain.ConnectFailedEvent]():    h.handleConnectFailed,
		reflect.TypeFor[domain.DisconnectedEvent]():     h.handleDisconnected,
		reflect.TypeFor[domain.TracksAddedEvent]():      h.handleTracksAdded,
		reflect.TypeFor[domain.TrackUnavailableEvent](): h.handleTrackUnavailable,
		reflect.TypeFor[domain.QueueEmptyEvent]():       h.handleQueueEmpty,
		reflect.TypeFor[domain.QueueClearedEvent]():     h.handleQueueCleared,
		reflect.TypeFor[domain.QueueShuffledEvent]():    h.handleQueueShuffled,
		reflect.TypeFor[domain.NowPlayingEvent]():       h.handleNowPlaying,
		reflect.TypeFor[domain.PlaybackErrorEvent]():    h.handlePlaybackError,
	}

	for eventType, handle := range handlers {
		err := h.subscriber.Subscribe(eventType, func(ctx context.Context, e domain.Event) {
			room := e.Target()
			if room.NotificationChannelID == 0 {
				slog.Debug("no notification channel, dropping event",
					"guild", room.GuildID,
					"type", eventType.Name(),
				)
				return
			}

			if err := handle(ctx, e); err != nil {
				slog.Warn("failed to send notification",
					"guild", room.GuildID,
					"type", eventType.Name(),
					"error", err,
				)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", eventType.Name(), err)
		}
	}

	slog.Debug("notification event handlers properly registered")

	return nil
}

func (h *NotificationEventHandler) handleConnected(_ context.Context, e domain.Event) error {
	event := e.(domain.ConnectedEvent)
	name := event.VoiceChannelName
	if name == "" {
		name = fmt.Sprintf("<#%s>", event.VoiceChannelID)
	}
	return h.notifier.SendInfo(event.NotificationChannelID, fmt.Sprintf("Joined **%s**.", name))
}

func (h *NotificationEventHandler) handleConnectFailed(_ context.Context, e domain.Event) error {
	event := e.(domain.ConnectFailedEvent)
	return h.notifier.SendError(event.NotificationChannelID, "You must join a voice channel first.")
}

func (h *NotificationEventHandler) handleDisconnected(_ context.Context, e domain.Event) error {
	event := e.(domain.DisconnectedEvent)
	message := "Left the voice channel."
	if event.External {
		message = "Disconnected from the voice channel."
	}
	return h.notifier.SendInfo(event.NotificationChannelID, message)
}

func (h *NotificationEventHandler) handleTracksAdded(_ context.Context, e domain.Event) error {
	event := e.(domain.TracksAddedEvent)

	var requester *ports.UserInfo
	if event.RequesterID != 0 && h.userInfoProvider != nil {
		info, err := h.userInfoProvider.GetUserInfo(event.GuildID, event.RequesterID)
		if err != nil {
			slog.Debug("failed to look up requester", "user", event.RequesterID, "error", err)
		} else {
			requester = info
		}
	}

	return h.notifier.SendTracksAdded(event.NotificationChannelID, event.Tracks, requester)
}

func (h *NotificationEventHandler) handleTrackUnavailable(_ context.Context, e domain.Event) error {
	event := e.(domain.TrackUnavailableEvent)
	return h.notifier.SendError(
		event.NotificationChannelID,
		fmt.Sprintf("**%s** is unavailable, skipping.", event.Track.Title),
	)
}

func (h *NotificationEventHandler) handleQueueEmpty(_ context.Context, e domain.Event) error {
	event := e.(domain.QueueEmptyEvent)
	return h.notifier.SendInfo(event.NotificationChannelID, "The queue is empty.")
}

func (h *NotificationEventHandler) handleQueueCleared(_ context.Context, e domain.Event) error {
	event := e.(domain.QueueClearedEvent)
	return h.notifier.SendInfo(
		event.NotificationChannelID,
		fmt.Sprintf("Cleared %d track(s) from the queue.", event.Removed),
	)
}

func (h *NotificationEventHandler) handleQueueShuffled(_ context.Context, e domain.Event) error {
	event := e.(domain.QueueShuffledEvent)
	return h.notifier.SendInfo(
		event.NotificationChannelID,
		fmt.Sprintf("Shuffled %d track(s).", event.Count),
	)
}

func (h *NotificationEventHandler) handleNowPlaying(_ context.Context, e domain.Event) error {
	event := e.(domain.NowPlayingEvent)
	return h.notifier.SendNowPlaying(event.NotificationChannelID, event.Track, event.Upcoming)
}

func (h *NotificationEventHandler) handlePlaybackError(_ context.Context, e domain.Event) error {
	event := e.(domain.PlaybackErrorEvent)

	message := "Playback failed."
	if event.Track != nil {
		message = fmt.Sprintf("Playback of **%s** failed.", event.Track.Title)
	}
	return h.notifier.SendError(event.NotificationChannelID, message)
}
