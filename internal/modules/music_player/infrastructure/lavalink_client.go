package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

// ErrNoLavalinkNode is returned when no Lavalink node is available.
var ErrNoLavalinkNode = errors.New("no available Lavalink node")

// pendingVoiceConnection tracks the state of a pending voice connection.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

// onEvent marks an event as received and signals ready if both events are present.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && p.hasVoiceServer {
		select {
		case <-p.ready:
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer holds one guild's VoiceStateUpdate and VoiceServerUpdate
// until both have arrived, so Lavalink never receives a partial voice state.
type voiceEventBuffer struct {
	mu sync.Mutex

	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	hasVoiceServer bool
	token          string
	endpoint       string
}

func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceState && b.hasVoiceServer
}

func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState && b.hasVoiceServer
}

// drain returns the buffered data and resets the buffer.
func (b *voiceEventBuffer) drain() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channelID, sessionID, token, endpoint = b.channelID, b.sessionID, b.token, b.endpoint

	// Reset field by field: b.mu is held.
	b.hasVoiceState, b.channelID, b.sessionID = false, nil, ""
	b.hasVoiceServer, b.token, b.endpoint = false, "", ""

	return
}

// voiceSession is an established connection and its out-of-band disconnect listener.
type voiceSession struct {
	conn         *ports.Connection
	onDisconnect func()
}

// activeStream is the stream currently sent to a guild's Lavalink player.
type activeStream struct {
	handle    *ports.PlaybackHandle
	callbacks ports.StreamCallbacks
	exception string // Last exception reported for the track, if any
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address      string
	Password     string
	Secure       bool
	SearchSource SearchSource
}

// LavalinkAdapter wraps DisGoLink to implement the voice transport,
// the audio source opener and a Lavalink-backed track resolver.
type LavalinkAdapter struct {
	link         disgolink.Client
	session      *discordgo.Session
	botID        snowflake.ID
	searchSource SearchSource

	pendingMu sync.Mutex
	pending   map[snowflake.ID]*pendingVoiceConnection

	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	mu       sync.Mutex
	sessions map[snowflake.ID]*voiceSession
	streams  map[snowflake.ID]*activeStream
}

// NewLavalinkAdapter creates a new LavalinkAdapter and connects to the Lavalink node.
// The Discord session must be open.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	if session.State == nil || session.State.User == nil {
		return nil, errors.New("discord session is not ready")
	}

	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := &LavalinkAdapter{
		session:      session,
		botID:        botID,
		searchSource: config.SearchSource,
		pending:      make(map[snowflake.ID]*pendingVoiceConnection),
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
		sessions:     make(map[snowflake.ID]*voiceSession),
		streams:      make(map[snowflake.ID]*activeStream),
	}

	adapter.link = disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)

	node, err := adapter.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// Close closes the connection to every Lavalink node.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// --- VoiceTransport ---

// Connect joins a voice channel.
// It waits for both VoiceStateUpdate and VoiceServerUpdate events before returning.
func (c *LavalinkAdapter) Connect(
	ctx context.Context,
	guildID, channelID snowflake.ID,
	onDisconnect func(),
) (*ports.Connection, error) {
	pending := &pendingVoiceConnection{
		ready: make(chan struct{}),
	}

	c.pendingMu.Lock()
	c.pending[guildID] = pending
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, guildID)
		c.pendingMu.Unlock()
	}()

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-pending.ready:
	case <-ctx.Done():
		c.leave(guildID)
		return nil, fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-time.After(voiceConnectionTimeout):
		c.leave(guildID)
		return nil, errors.New("timeout waiting for voice connection")
	}

	conn := &ports.Connection{
		GuildID:     guildID,
		ChannelID:   channelID,
		ChannelName: c.channelName(channelID),
	}

	c.mu.Lock()
	c.sessions[guildID] = &voiceSession{conn: conn, onDisconnect: onDisconnect}
	c.mu.Unlock()

	return conn, nil
}

// Disconnect destroys the guild's Lavalink player and leaves the voice channel.
func (c *LavalinkAdapter) Disconnect(ctx context.Context, conn *ports.Connection) error {
	c.mu.Lock()
	if s, ok := c.sessions[conn.GuildID]; ok && s.conn == conn {
		delete(c.sessions, conn.GuildID)
	}
	delete(c.streams, conn.GuildID)
	c.mu.Unlock()

	if player := c.link.ExistingPlayer(conn.GuildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", conn.GuildID, "error", err)
		}
	}

	return c.leave(conn.GuildID)
}

func (c *LavalinkAdapter) leave(guildID snowflake.ID) error {
	if err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// SendAudio plays the source on the guild's Lavalink player, replacing the current track.
func (c *LavalinkAdapter) SendAudio(
	ctx context.Context,
	conn *ports.Connection,
	source *ports.AudioSource,
	callbacks ports.StreamCallbacks,
) (*ports.PlaybackHandle, error) {
	handle := &ports.PlaybackHandle{
		ID:         uuid.NewString(),
		Connection: conn,
		Source:     source,
	}
	stream := &activeStream{handle: handle, callbacks: callbacks}

	c.mu.Lock()
	c.streams[conn.GuildID] = stream
	c.mu.Unlock()

	player := c.link.Player(conn.GuildID)

	// WithEncodedTrack avoids sending userData:null; the player may still be paused from a previous track.
	err := player.Update(ctx, lavalink.WithEncodedTrack(source.Encoded), lavalink.WithPaused(false))
	if err != nil {
		c.mu.Lock()
		if c.streams[conn.GuildID] == stream {
			delete(c.streams, conn.GuildID)
		}
		c.mu.Unlock()

		return nil, fmt.Errorf("failed to play track: %w", err)
	}

	return handle, nil
}

// Pause pauses the stream of the handle.
func (c *LavalinkAdapter) Pause(ctx context.Context, handle *ports.PlaybackHandle) error {
	player := c.link.Player(handle.Connection.GuildID)

	if err := player.Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}

	return nil
}

// Resume resumes the stream of the handle.
func (c *LavalinkAdapter) Resume(ctx context.Context, handle *ports.PlaybackHandle) error {
	player := c.link.Player(handle.Connection.GuildID)

	if err := player.Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}

	return nil
}

// --- AudioSourceOpener ---

// OpenAudioSource asks Lavalink to load the track's URL.
// Returns a nil source if Lavalink finds nothing playable.
func (c *LavalinkAdapter) OpenAudioSource(
	ctx context.Context,
	track domain.Track,
) (*ports.AudioSource, error) {
	result, err := c.loadTracks(ctx, track.URL)
	if err != nil {
		return nil, err
	}

	var loaded *lavalink.Track
	switch data := result.Data.(type) {
	case lavalink.Track:
		loaded = &data
	case lavalink.Search:
		if len(data) > 0 {
			loaded = &data[0]
		}
	case lavalink.Exception:
		return nil, fmt.Errorf("lavalink failed to load %s: %s", track.URL, data.Message)
	}

	if loaded == nil {
		return nil, nil
	}

	return &ports.AudioSource{
		Track:   track,
		Encoded: loaded.Encoded,
	}, nil
}

// --- TrackResolver ---

// ResolveBySearch returns the top Lavalink search result for the query.
func (c *LavalinkAdapter) ResolveBySearch(ctx context.Context, query string) (domain.Track, error) {
	result, err := c.loadTracks(ctx, c.searchSource.LavalinkPrefix()+query)
	if err != nil {
		return domain.Track{}, fmt.Errorf("%w: %w", domain.ErrResolution, err)
	}

	tracks := tracksFromLoadResult(result)
	if len(tracks) == 0 {
		return domain.Track{}, domain.ErrNoResults
	}

	return tracks[0], nil
}

// ResolvePlaylist returns every track of the playlist.
func (c *LavalinkAdapter) ResolvePlaylist(ctx context.Context, playlistID string) ([]domain.Track, error) {
	result, err := c.loadTracks(ctx, domain.PlaylistURL(playlistID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrResolution, err)
	}

	tracks := tracksFromLoadResult(result)
	if len(tracks) == 0 {
		return nil, domain.ErrEmptyPlaylist
	}

	return tracks, nil
}

// ResolveItem returns the track of the video.
func (c *LavalinkAdapter) ResolveItem(ctx context.Context, videoID string) (domain.Track, error) {
	result, err := c.loadTracks(ctx, domain.VideoURL(videoID))
	if err != nil {
		return domain.Track{}, fmt.Errorf("%w: %w", domain.ErrResolution, err)
	}

	tracks := tracksFromLoadResult(result)
	if len(tracks) == 0 {
		return domain.Track{}, domain.ErrNoResults
	}

	return tracks[0], nil
}

func (c *LavalinkAdapter) loadTracks(ctx context.Context, identifier string) (*lavalink.LoadResult, error) {
	node := c.link.BestNode()
	if node == nil {
		return nil, ErrNoLavalinkNode
	}

	result, err := node.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	return result, nil
}

// tracksFromLoadResult converts a Lavalink load result into domain tracks.
// Exceptions and empty results yield no tracks.
func tracksFromLoadResult(result *lavalink.LoadResult) []domain.Track {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return []domain.Track{trackFromLavalink(data)}

	case lavalink.Playlist:
		tracks := make([]domain.Track, 0, len(data.Tracks))
		for _, track := range data.Tracks {
			tracks = append(tracks, trackFromLavalink(track))
		}
		return tracks

	case lavalink.Search:
		tracks := make([]domain.Track, 0, len(data))
		for _, track := range data {
			tracks = append(tracks, trackFromLavalink(track))
		}
		return tracks

	default:
		return nil
	}
}

// trackFromLavalink maps Lavalink track info to a domain track.
func trackFromLavalink(track lavalink.Track) domain.Track {
	info := track.Info

	url := ""
	if info.SourceName == "youtube" {
		url = domain.VideoURL(info.Identifier)
	} else if info.URI != nil {
		url = *info.URI
	}

	var duration time.Duration
	if !info.IsStream {
		duration = time.Duration(info.Length) * time.Millisecond
	}

	return domain.NewTrack(info.Title, url, &domain.Author{Name: info.Author}, duration)
}

// --- Discord gateway events ---

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	buffer := c.voiceBuffer(guildID)
	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}

	c.pendingMu.Lock()
	pending := c.pending[guildID]
	c.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(false)
	}
}

// OnVoiceStateUpdate handles Discord voice state updates of the bot.
// An update without a channel for a guild with an established connection
// is an out-of-band disconnect and is reported to the connection's listener.
// This must be called from the Discord event handler.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	if event.ChannelID == "" {
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		c.clearVoiceBuffer(guildID)
		c.handleDropped(guildID)
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	buffer := c.voiceBuffer(guildID)
	if buffer.setVoiceState(&channelID, event.SessionID) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}

	c.pendingMu.Lock()
	pending := c.pending[guildID]
	c.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(true)
	}
}

func (c *LavalinkAdapter) handleDropped(guildID snowflake.ID) {
	c.mu.Lock()
	s, ok := c.sessions[guildID]
	delete(c.sessions, guildID)
	delete(c.streams, guildID)
	c.mu.Unlock()

	if !ok {
		return
	}

	slog.Info("bot was disconnected from voice channel", "guild", guildID, "channel", s.conn.ChannelID)
	if s.onDisconnect != nil {
		s.onDisconnect()
	}
}

func (c *LavalinkAdapter) voiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()

	buffer, ok := c.voiceBuffers[guildID]
	if !ok {
		buffer = &voiceEventBuffer{}
		c.voiceBuffers[guildID] = buffer
	}
	return buffer
}

func (c *LavalinkAdapter) clearVoiceBuffer(guildID snowflake.ID) {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()
	delete(c.voiceBuffers, guildID)
}

func (c *LavalinkAdapter) forwardBufferedVoiceEvents(guildID snowflake.ID, buffer *voiceEventBuffer) {
	channelID, sessionID, token, endpoint := buffer.drain()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (c *LavalinkAdapter) channelName(channelID snowflake.ID) string {
	if channel, err := c.session.State.Channel(channelID.String()); err == nil {
		return channel.Name
	}
	if channel, err := c.session.Channel(channelID.String()); err == nil {
		return channel.Name
	}
	return ""
}

// --- Lavalink events ---

// takeStream removes and returns the active stream of the guild if it is playing the track.
func (c *LavalinkAdapter) takeStream(guildID snowflake.ID, encoded string) *activeStream {
	c.mu.Lock()
	defer c.mu.Unlock()

	stream, ok := c.streams[guildID]
	if !ok || stream.handle.Source.Encoded != encoded {
		return nil
	}
	delete(c.streams, guildID)
	return stream
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	switch event.Reason {
	case lavalink.TrackEndReasonFinished:
		if stream := c.takeStream(player.GuildID(), event.Track.Encoded); stream != nil && stream.callbacks.OnEnd != nil {
			stream.callbacks.OnEnd()
		}

	case lavalink.TrackEndReasonLoadFailed:
		c.failStream(player.GuildID(), event.Track.Encoded, "track failed to load")

	case lavalink.TrackEndReasonCleanup:
		// Our own teardown drops the stream first, so a match means the node gave up on the player.
		c.failStream(player.GuildID(), event.Track.Encoded, "player was cleaned up by the Lavalink node")

	default:
		// Stopped and replaced tracks were ended by us.
	}
}

// failStream reports the guild's stream as failed if it is playing the track.
// The last exception reported for the track takes precedence over fallback.
func (c *LavalinkAdapter) failStream(guildID snowflake.ID, encoded, fallback string) {
	stream := c.takeStream(guildID, encoded)
	if stream == nil || stream.callbacks.OnError == nil {
		return
	}

	message := stream.exception
	if message == "" {
		message = fallback
	}
	stream.callbacks.OnError(errors.New(message))
}

func (c *LavalinkAdapter) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)

	c.mu.Lock()
	defer c.mu.Unlock()

	if stream, ok := c.streams[player.GuildID()]; ok && stream.handle.Source.Encoded == event.Track.Encoded {
		stream.exception = event.Exception.Message
	}
}

// onTrackStuck fails the stream: Lavalink keeps a stuck track loaded and never ends it.
func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)

	stream := c.takeStream(player.GuildID(), event.Track.Encoded)
	if stream == nil || stream.callbacks.OnError == nil {
		return
	}
	stream.callbacks.OnError(fmt.Errorf("track stuck for %dms", event.Threshold.Milliseconds()))
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.VoiceTransport    = (*LavalinkAdapter)(nil)
	_ ports.AudioSourceOpener = (*LavalinkAdapter)(nil)
	_ ports.TrackResolver     = (*LavalinkAdapter)(nil)
)
