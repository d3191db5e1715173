package usecases

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

const (
	testGuildID        = snowflake.ID(1)
	testVoiceChannelID = snowflake.ID(2)
	testTextChannelID  = snowflake.ID(3)
	testUserID         = snowflake.ID(4)
)

func mockTrack(id string) domain.Track {
	return domain.NewTrack(
		"Track "+id,
		domain.VideoURL(id),
		&domain.Author{Name: "Artist", URL: domain.ChannelURL("channel")},
		3*time.Minute,
	)
}

func mockTracks(ids ...string) []domain.Track {
	tracks := make([]domain.Track, len(ids))
	for i, id := range ids {
		tracks[i] = mockTrack(id)
	}
	return tracks
}

type mockTrackResolver struct {
	mu sync.Mutex

	searchResult domain.Track
	searchErr    error
	playlists    map[string][]domain.Track
	playlistErr  error
	items        map[string]domain.Track
	itemErr      error

	searches []string
}

func newMockTrackResolver() *mockTrackResolver {
	return &mockTrackResolver{
		playlists: make(map[string][]domain.Track),
		items:     make(map[string]domain.Track),
	}
}

func (m *mockTrackResolver) ResolveBySearch(_ context.Context, query string) (domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.searches = append(m.searches, query)
	if m.searchErr != nil {
		return domain.Track{}, m.searchErr
	}
	if !m.searchResult.IsValid() {
		return domain.Track{}, domain.ErrNoResults
	}
	return m.searchResult, nil
}

func (m *mockTrackResolver) ResolvePlaylist(_ context.Context, id string) ([]domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playlistErr != nil {
		return nil, m.playlistErr
	}
	return m.playlists[id], nil
}

func (m *mockTrackResolver) ResolveItem(_ context.Context, id string) (domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.itemErr != nil {
		return domain.Track{}, m.itemErr
	}
	track, ok := m.items[id]
	if !ok {
		return domain.Track{}, domain.ErrNoResults
	}
	return track, nil
}

// mockTransport records calls and keeps the callbacks of every stream it started.
type mockTransport struct {
	mu sync.Mutex

	connectErr    error
	disconnectErr error
	sendErr       error
	pauseErr      error
	resumeErr     error

	connects     int
	disconnects  int
	pauses       int
	resumes      int
	sent         []*ports.AudioSource
	callbacks    []ports.StreamCallbacks
	onDisconnect func()
	conn         *ports.Connection
}

func (m *mockTransport) Connect(
	_ context.Context,
	guildID, channelID snowflake.ID,
	onDisconnect func(),
) (*ports.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connects++
	if m.connectErr != nil {
		return nil, m.connectErr
	}

	m.onDisconnect = onDisconnect
	m.conn = &ports.Connection{
		GuildID:     guildID,
		ChannelID:   channelID,
		ChannelName: "General",
	}
	return m.conn, nil
}

func (m *mockTransport) Disconnect(_ context.Context, _ *ports.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.disconnects++
	m.conn = nil
	return m.disconnectErr
}

func (m *mockTransport) SendAudio(
	_ context.Context,
	conn *ports.Connection,
	source *ports.AudioSource,
	callbacks ports.StreamCallbacks,
) (*ports.PlaybackHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return nil, m.sendErr
	}

	m.sent = append(m.sent, source)
	m.callbacks = append(m.callbacks, callbacks)
	return &ports.PlaybackHandle{
		ID:         fmt.Sprintf("handle-%d", len(m.sent)),
		Connection: conn,
		Source:     source,
	}, nil
}

func (m *mockTransport) Pause(_ context.Context, _ *ports.PlaybackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pauses++
	return m.pauseErr
}

func (m *mockTransport) Resume(_ context.Context, _ *ports.PlaybackHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resumes++
	return m.resumeErr
}

func (m *mockTransport) setSendErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

func (m *mockTransport) sentTitles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	titles := make([]string, len(m.sent))
	for i, source := range m.sent {
		titles[i] = source.Track.Title
	}
	return titles
}

func (m *mockTransport) disconnectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnects
}

// stream returns the callbacks of the n-th started stream (0-based).
func (m *mockTransport) stream(t *testing.T, n int) ports.StreamCallbacks {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	if n >= len(m.callbacks) {
		t.Fatalf("expected at least %d streams, got %d", n+1, len(m.callbacks))
	}
	return m.callbacks[n]
}

// dropConnection simulates the bot being removed from the voice channel.
func (m *mockTransport) dropConnection() {
	m.mu.Lock()
	onDisconnect := m.onDisconnect
	m.mu.Unlock()

	if onDisconnect != nil {
		onDisconnect()
	}
}

type mockOpener struct {
	mu          sync.Mutex
	unavailable map[string]bool
	err         error
}

func (m *mockOpener) OpenAudioSource(_ context.Context, track domain.Track) (*ports.AudioSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.unavailable[track.URL] {
		return nil, nil
	}
	return &ports.AudioSource{Track: track, Encoded: "encoded-" + track.URL}, nil
}

// recordingPublisher records published events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *recordingPublisher) Publish(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
	return m.err
}

func (m *recordingPublisher) all() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.events...)
}

func (m *recordingPublisher) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// types returns the type names of the recorded events, for order assertions.
func (m *recordingPublisher) types() []string {
	events := m.all()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = reflect.TypeOf(e).Name()
	}
	return names
}

// waitFor blocks until an event satisfying match has been published.
func (m *recordingPublisher) waitFor(t *testing.T, match func(domain.Event) bool) domain.Event {
	t.Helper()

	deadline := time.After(time.Second)
	for {
		for _, e := range m.all() {
			if match(e) {
				return e
			}
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for event, got %v", m.types())
			return nil
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func eventsOf[E domain.Event](m *recordingPublisher) []E {
	var result []E
	for _, e := range m.all() {
		if typed, ok := e.(E); ok {
			result = append(result, typed)
		}
	}
	return result
}

func isEvent[E domain.Event]() func(domain.Event) bool {
	return func(e domain.Event) bool {
		_, ok := e.(E)
		return ok
	}
}

type mockVoiceStateProvider struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func (m *mockVoiceStateProvider) GetUserVoiceChannel(
	_, userID snowflake.ID,
) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.channels[userID], nil
}

type playerFixture struct {
	resolver  *mockTrackResolver
	transport *mockTransport
	opener    *mockOpener
	publisher *recordingPublisher
	player    *Player
}

func newPlayerFixture(t *testing.T) *playerFixture {
	t.Helper()

	f := &playerFixture{
		resolver:  newMockTrackResolver(),
		transport: &mockTransport{},
		opener:    &mockOpener{unavailable: make(map[string]bool)},
		publisher: &recordingPublisher{},
	}
	f.player = NewPlayer(testGuildID, f.deps())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		f.player.Shutdown(ctx)
	})

	return f
}

func (f *playerFixture) deps() PlayerDependencies {
	return PlayerDependencies{
		Dispatcher:  NewQueryDispatcher(f.resolver),
		Transport:   f.transport,
		Opener:      f.opener,
		Publisher:   f.publisher,
		PreviewSize: DefaultPreviewSize,
	}
}

// play issues a play command from a user in the test voice channel.
func (f *playerFixture) play(t *testing.T, query string) ([]domain.Track, error) {
	t.Helper()

	return f.player.Play(t.Context(), PlayerPlayInput{
		Query:                 query,
		VoiceChannelID:        testVoiceChannelID,
		NotificationChannelID: testTextChannelID,
		RequesterID:           testUserID,
	})
}

// snapshot returns the player state once all pending tasks have run.
func (f *playerFixture) snapshot(t *testing.T) *PlayerSnapshot {
	t.Helper()

	snapshot, err := f.player.Snapshot(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return snapshot
}

// assertConsistent checks that an active status implies a live connection.
func (f *playerFixture) assertConsistent(t *testing.T) {
	t.Helper()

	snapshot := f.snapshot(t)
	if snapshot.Status.IsActive() && !snapshot.Connected {
		t.Errorf("status %v without a connection", snapshot.Status)
	}
	if snapshot.Status.IsActive() && snapshot.Current == nil {
		t.Errorf("status %v without a current track", snapshot.Status)
	}
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()

	if target == nil {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}
