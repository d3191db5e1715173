package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// DefaultPreviewSize is the number of upcoming tracks attached to now-playing notifications.
const DefaultPreviewSize = 12

// mailboxSize bounds the number of operations waiting for a player.
const mailboxSize = 32

// PlayerDependencies are the collaborators shared by every player.
type PlayerDependencies struct {
	Dispatcher  *QueryDispatcher
	Transport   ports.VoiceTransport
	Opener      ports.AudioSourceOpener
	Publisher   ports.EventPublisher
	PreviewSize int
}

// PlayerSnapshot is a read-only view of a player for display.
type PlayerSnapshot struct {
	Status         domain.PlaybackStatus
	Connected      bool
	VoiceChannelID snowflake.ID
	Current        *domain.Track // Current queue track, nil when nothing is loaded or the queue was emptied
	Upcoming       []domain.Track
	Pending        int
}

type task func(ctx context.Context)

// Player is the playback state machine of one guild.
//
// A Player is a serial actor: every public operation and every transport
// callback runs as a task on a single goroutine, so its state needs no locking.
// Stream callbacks carry the generation they were registered under and are
// ignored once the player has moved on to another stream or disconnected.
type Player struct {
	deps PlayerDependencies

	mailbox chan task
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	// Read from other goroutines by the registry.
	lastActive atomic.Int64
	connected  atomic.Bool

	// Owned by the actor goroutine.
	room       domain.Room
	queue      domain.Queue
	status     domain.PlaybackStatus
	conn       *ports.Connection
	handle     *ports.PlaybackHandle
	generation uint64
}

// NewPlayer creates a Player for the guild and starts its goroutine.
func NewPlayer(guildID snowflake.ID, deps PlayerDependencies) *Player {
	return newPlayer(guildID, deps, domain.NewQueue())
}

func newPlayer(guildID snowflake.ID, deps PlayerDependencies, queue domain.Queue) *Player {
	if deps.PreviewSize <= 0 {
		deps.PreviewSize = DefaultPreviewSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Player{
		deps:    deps,
		mailbox: make(chan task, mailboxSize),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		room:    domain.Room{GuildID: guildID},
		queue:   queue,
		status:  domain.StatusOff,
	}
	p.touch()

	go p.run()

	return p
}

func (p *Player) run() {
	defer close(p.stopped)

	for {
		select {
		case <-p.ctx.Done():
			return
		case t := <-p.mailbox:
			t(p.ctx)
		}
	}
}

// do runs fn on the actor goroutine and waits for its result.
func (p *Player) do(ctx context.Context, fn func(ctx context.Context) error) error {
	p.touch()

	result := make(chan error, 1)
	t := func(context.Context) {
		result <- fn(ctx)
	}

	select {
	case p.mailbox <- t:
	case <-p.ctx.Done():
		return ErrPlayerClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-p.stopped:
		return ErrPlayerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submit queues a task without waiting. It is used by transport callbacks,
// which may fire on any goroutine, including while the actor is busy.
func (p *Player) submit(t task) {
	go func() {
		select {
		case p.mailbox <- t:
		case <-p.ctx.Done():
		}
	}()
}

func (p *Player) touch() {
	p.lastActive.Store(time.Now().UnixNano())
}

// GuildID returns the guild the player belongs to.
func (p *Player) GuildID() snowflake.ID {
	return p.room.GuildID
}

// idleSince reports when the player last received a command, and whether it is connected.
func (p *Player) idleSince() (time.Time, bool) {
	return time.Unix(0, p.lastActive.Load()), p.connected.Load()
}

// PlayerPlayInput contains the input for Player.Play.
type PlayerPlayInput struct {
	Query                 string
	VoiceChannelID        snowflake.ID // 0 when the requester is not in a voice channel
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
	RequesterID           snowflake.ID
}

// Play resolves the query, joins the voice channel if needed, enqueues the
// result and starts the queue head unless something is already playing.
// The resolved tracks are returned even when joining the voice channel fails.
func (p *Player) Play(ctx context.Context, input PlayerPlayInput) ([]domain.Track, error) {
	var added []domain.Track

	err := p.do(ctx, func(ctx context.Context) error {
		if domain.ParseQuery(input.Query).IsEmpty() {
			return ErrEmptyQuery
		}
		p.setNotificationChannel(input.NotificationChannelID)

		tracks, err := p.deps.Dispatcher.Resolve(ctx, input.Query)
		if err != nil {
			slog.Info("query could not be resolved",
				"guild", p.room.GuildID,
				"query", input.Query,
				"error", err,
			)
			return err
		}

		// Tracks stay queued when the join fails and start on the next successful play.
		connectErr := p.connect(ctx, input.VoiceChannelID)

		p.queue.Add(tracks...)
		added = tracks
		p.publish(domain.TracksAddedEvent{
			Room:        p.room,
			Tracks:      tracks,
			RequesterID: input.RequesterID,
		})

		if connectErr != nil {
			return connectErr
		}

		if p.status != domain.StatusPlaying {
			p.advance(ctx)
		}

		return nil
	})

	return added, err
}

// Pause pauses the playing track.
func (p *Player) Pause(ctx context.Context, notificationChannelID snowflake.ID) error {
	return p.do(ctx, func(ctx context.Context) error {
		p.setNotificationChannel(notificationChannelID)

		switch p.status {
		case domain.StatusPaused:
			return ErrAlreadyPaused
		case domain.StatusOff:
			return ErrNotPlaying
		}

		if err := p.deps.Transport.Pause(ctx, p.handle); err != nil {
			return fmt.Errorf("%w: failed to pause: %w", domain.ErrTransport, err)
		}

		p.status = domain.StatusPaused
		slog.Debug("playback paused", "guild", p.room.GuildID)

		return nil
	})
}

// Resume resumes the paused track.
func (p *Player) Resume(ctx context.Context, notificationChannelID snowflake.ID) error {
	return p.do(ctx, func(ctx context.Context) error {
		p.setNotificationChannel(notificationChannelID)

		switch p.status {
		case domain.StatusPlaying:
			return ErrNotPaused
		case domain.StatusOff:
			return ErrNotPlaying
		}

		if err := p.deps.Transport.Resume(ctx, p.handle); err != nil {
			return fmt.Errorf("%w: failed to resume: %w", domain.ErrTransport, err)
		}

		p.status = domain.StatusPlaying
		slog.Debug("playback resumed", "guild", p.room.GuildID)

		return nil
	})
}

// Stop empties the queue and leaves the voice channel.
func (p *Player) Stop(ctx context.Context, notificationChannelID snowflake.ID) error {
	return p.do(ctx, func(ctx context.Context) error {
		p.setNotificationChannel(notificationChannelID)

		p.clearQueue()
		p.disconnect(ctx)

		return nil
	})
}

// Next skips to the following track, or leaves the voice channel if the queue is empty.
func (p *Player) Next(ctx context.Context, notificationChannelID snowflake.ID) error {
	return p.do(ctx, func(ctx context.Context) error {
		p.setNotificationChannel(notificationChannelID)

		if p.conn == nil {
			return ErrNotConnected
		}

		p.advance(ctx)

		return nil
	})
}

// EmptyQueue removes every pending track. The track being streamed keeps playing.
func (p *Player) EmptyQueue(ctx context.Context, notificationChannelID snowflake.ID) error {
	return p.do(ctx, func(context.Context) error {
		p.setNotificationChannel(notificationChannelID)
		p.clearQueue()
		return nil
	})
}

// Shuffle shuffles the pending tracks.
func (p *Player) Shuffle(ctx context.Context, notificationChannelID snowflake.ID) error {
	return p.do(ctx, func(context.Context) error {
		p.setNotificationChannel(notificationChannelID)

		p.queue.Shuffle()
		p.publish(domain.QueueShuffledEvent{Room: p.room, Count: p.queue.Len()})

		return nil
	})
}

// Snapshot returns the current state of the player.
func (p *Player) Snapshot(ctx context.Context) (*PlayerSnapshot, error) {
	var snapshot *PlayerSnapshot

	err := p.do(ctx, func(context.Context) error {
		snapshot = &PlayerSnapshot{
			Status:    p.status,
			Connected: p.conn != nil,
			Upcoming:  p.queue.Peek(p.deps.PreviewSize),
			Pending:   p.queue.Len(),
		}
		if p.conn != nil {
			snapshot.VoiceChannelID = p.conn.ChannelID
		}
		if p.status.IsActive() {
			snapshot.Current = p.queue.Current()
		}
		return nil
	})

	return snapshot, err
}

// Shutdown leaves the voice channel and stops the player goroutine.
// Operations issued afterwards fail with ErrPlayerClosed.
func (p *Player) Shutdown(ctx context.Context) {
	err := p.do(ctx, func(ctx context.Context) error {
		p.disconnect(ctx)
		return nil
	})
	if err != nil {
		slog.Warn("player did not shut down cleanly", "guild", p.room.GuildID, "error", err)
	}

	p.cancel()
	<-p.stopped
}

// advance dequeues the head and streams it. Unavailable tracks are reported
// and skipped; an exhausted queue releases the voice connection.
func (p *Player) advance(ctx context.Context) {
	for {
		track, ok := p.queue.Next()
		if !ok {
			slog.Debug("queue exhausted", "guild", p.room.GuildID)
			p.publish(domain.QueueEmptyEvent{Room: p.room})
			p.disconnect(ctx)
			return
		}

		if p.stream(ctx, track) {
			return
		}
	}
}

// stream opens an audio source for the track and sends it over the connection.
// Returns false if the track was unavailable and the caller should move on.
func (p *Player) stream(ctx context.Context, track domain.Track) bool {
	source, err := p.deps.Opener.OpenAudioSource(ctx, track)
	if err != nil || source == nil {
		if err == nil {
			err = domain.ErrTrackUnavailable
		} else {
			err = fmt.Errorf("%w: %w", domain.ErrTrackUnavailable, err)
		}

		slog.Warn("track unavailable", "guild", p.room.GuildID, "track", track.Title, "error", err)
		p.publish(domain.TrackUnavailableEvent{Room: p.room, Track: track, Err: err})

		return false
	}

	if p.conn == nil {
		p.publish(domain.PlaybackErrorEvent{Room: p.room, Track: &track, Err: ErrNotConnected})
		return true
	}

	gen := p.generation + 1
	callbacks := ports.StreamCallbacks{
		OnEnd: func() {
			p.submit(func(ctx context.Context) {
				p.onStreamEnd(ctx, gen)
			})
		},
		OnError: func(err error) {
			p.submit(func(ctx context.Context) {
				p.onStreamError(ctx, gen, track, err)
			})
		},
	}

	handle, err := p.deps.Transport.SendAudio(ctx, p.conn, source, callbacks)
	if err != nil {
		err = fmt.Errorf("%w: failed to send audio: %w", domain.ErrTransport, err)

		slog.Error("failed to start stream", "guild", p.room.GuildID, "track", track.Title, "error", err)
		p.publish(domain.PlaybackErrorEvent{Room: p.room, Track: &track, Err: err})

		return true
	}

	p.generation = gen
	p.handle = handle
	p.status = domain.StatusPlaying

	slog.Debug("stream started", "guild", p.room.GuildID, "track", track.Title, "handle", handle.ID)
	p.publish(domain.NowPlayingEvent{
		Room:     p.room,
		Track:    track,
		Upcoming: p.queue.Peek(p.deps.PreviewSize),
	})

	return true
}

func (p *Player) onStreamEnd(ctx context.Context, gen uint64) {
	if gen != p.generation {
		slog.Debug("ignoring end of stale stream", "guild", p.room.GuildID)
		return
	}

	p.handle = nil
	p.status = domain.StatusOff
	p.advance(ctx)
}

func (p *Player) onStreamError(ctx context.Context, gen uint64, track domain.Track, err error) {
	if gen != p.generation {
		slog.Debug("ignoring error of stale stream", "guild", p.room.GuildID, "error", err)
		return
	}

	err = fmt.Errorf("%w: %w", domain.ErrStream, err)
	slog.Warn("stream failed", "guild", p.room.GuildID, "track", track.Title, "error", err)
	p.publish(domain.PlaybackErrorEvent{Room: p.room, Track: &track, Err: err})

	p.handle = nil
	p.status = domain.StatusOff
	p.advance(ctx)
}

// connect joins the voice channel unless a connection already exists.
func (p *Player) connect(ctx context.Context, channelID snowflake.ID) error {
	if p.conn != nil {
		return nil
	}

	if channelID == 0 {
		p.publish(domain.ConnectFailedEvent{Room: p.room, Err: ErrUserNotInVoice})
		return ErrUserNotInVoice
	}

	var conn *ports.Connection
	onDisconnect := func() {
		p.submit(func(context.Context) {
			p.destroy(conn)
		})
	}

	conn, err := p.deps.Transport.Connect(ctx, p.room.GuildID, channelID, onDisconnect)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUserNotInVoice, err)

		slog.Warn("failed to join voice channel", "guild", p.room.GuildID, "channel", channelID, "error", err)
		p.publish(domain.ConnectFailedEvent{Room: p.room, Err: err})

		return err
	}

	p.conn = conn
	p.connected.Store(true)

	slog.Info("joined voice channel", "guild", p.room.GuildID, "channel", channelID)
	p.publish(domain.ConnectedEvent{
		Room:             p.room,
		VoiceChannelID:   conn.ChannelID,
		VoiceChannelName: conn.ChannelName,
	})

	return nil
}

// disconnect leaves the voice channel. Local state is cleared even if the transport fails.
func (p *Player) disconnect(ctx context.Context) {
	if p.conn == nil {
		return
	}

	if err := p.deps.Transport.Disconnect(ctx, p.conn); err != nil {
		slog.Warn("failed to leave voice channel", "guild", p.room.GuildID, "error", err)
	}

	p.reset()

	slog.Info("left voice channel", "guild", p.room.GuildID)
	p.publish(domain.DisconnectedEvent{Room: p.room})
}

// destroy handles a connection dropped out-of-band.
func (p *Player) destroy(conn *ports.Connection) {
	if conn == nil || p.conn != conn {
		return
	}

	p.reset()

	slog.Info("voice connection dropped", "guild", p.room.GuildID)
	p.publish(domain.DisconnectedEvent{Room: p.room, External: true})
}

func (p *Player) reset() {
	p.conn = nil
	p.handle = nil
	p.status = domain.StatusOff
	p.generation++
	p.connected.Store(false)
}

func (p *Player) clearQueue() {
	removed := p.queue.Len()
	p.queue.Empty()
	p.publish(domain.QueueClearedEvent{Room: p.room, Removed: removed})
}

func (p *Player) setNotificationChannel(channelID snowflake.ID) {
	if channelID != 0 {
		p.room.NotificationChannelID = channelID
	}
}

func (p *Player) publish(event domain.Event) {
	if p.deps.Publisher == nil {
		return
	}
	if err := p.deps.Publisher.Publish(event); err != nil {
		slog.Warn("failed to publish event", "guild", p.room.GuildID, "error", err)
	}
}
