package usecases

import (
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

func newTestService(t *testing.T, voice *mockVoiceStateProvider) (*PlayerService, *playerFixture) {
	t.Helper()

	registry, f := newTestRegistry(t, time.Minute)
	return NewPlayerService(registry, voice), f
}

func TestPlayerService_Play(t *testing.T) {
	tests := []struct {
		name        string
		voice       *mockVoiceStateProvider
		query       string
		wantErr     error
		wantTracks  int
		wantConnect bool
	}{
		{
			name: "user in voice channel",
			voice: &mockVoiceStateProvider{
				channels: map[snowflake.ID]snowflake.ID{testUserID: testVoiceChannelID},
			},
			query:       "song",
			wantTracks:  1,
			wantConnect: true,
		},
		{
			name:       "user not in voice channel",
			voice:      &mockVoiceStateProvider{},
			query:      "song",
			wantErr:    ErrUserNotInVoice,
			wantTracks: 1,
		},
		{
			name:       "voice state lookup fails",
			voice:      &mockVoiceStateProvider{err: errors.New("guild not cached")},
			query:      "song",
			wantErr:    ErrUserNotInVoice,
			wantTracks: 1,
		},
		{
			name:    "empty query",
			voice:   &mockVoiceStateProvider{},
			query:   "",
			wantErr: ErrEmptyQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, f := newTestService(t, tt.voice)
			f.resolver.searchResult = mockTrack("1")

			output, err := service.Play(t.Context(), PlayInput{
				GuildID:               testGuildID,
				UserID:                testUserID,
				NotificationChannelID: testTextChannelID,
				Query:                 tt.query,
			})

			assertErrorIs(t, err, tt.wantErr)
			if output != nil && len(output.Tracks) != tt.wantTracks {
				t.Errorf("expected %d tracks, got %d", tt.wantTracks, len(output.Tracks))
			}
			if connected := f.transport.connects > 0; connected != tt.wantConnect {
				t.Errorf("expected connect=%v, got %v", tt.wantConnect, connected)
			}
		})
	}
}

func TestPlayerService_WithoutPlayer(t *testing.T) {
	service, _ := newTestService(t, &mockVoiceStateProvider{})
	input := GuildInput{GuildID: testGuildID}

	assertErrorIs(t, service.Pause(t.Context(), input), ErrNotPlaying)
	assertErrorIs(t, service.Resume(t.Context(), input), ErrNotPlaying)
	assertErrorIs(t, service.Next(t.Context(), input), ErrNotConnected)
	assertErrorIs(t, service.Stop(t.Context(), input), nil)
	assertErrorIs(t, service.EmptyQueue(t.Context(), input), nil)
	assertErrorIs(t, service.Shuffle(t.Context(), input), nil)

	output, err := service.Queue(t.Context(), input)
	assertErrorIs(t, err, nil)
	if output.Status != domain.StatusOff || output.Current != nil || output.Pending != 0 {
		t.Errorf("expected empty queue output, got %+v", output)
	}
}

func TestPlayerService_Queue(t *testing.T) {
	voice := &mockVoiceStateProvider{
		channels: map[snowflake.ID]snowflake.ID{testUserID: testVoiceChannelID},
	}
	service, f := newTestService(t, voice)
	f.resolver.playlists["PLtest"] = mockTracks("1", "2", "3")

	_, err := service.Play(t.Context(), PlayInput{
		GuildID: testGuildID,
		UserID:  testUserID,
		Query:   playlistURL,
	})
	assertErrorIs(t, err, nil)

	output, err := service.Queue(t.Context(), GuildInput{GuildID: testGuildID})
	assertErrorIs(t, err, nil)

	if output.Status != domain.StatusPlaying {
		t.Errorf("expected status playing, got %v", output.Status)
	}
	if output.Current == nil || output.Current.Title != "Track 1" {
		t.Errorf("expected current Track 1, got %v", output.Current)
	}
	if output.Pending != 2 || len(output.Upcoming) != 2 {
		t.Errorf("expected 2 upcoming tracks, got %d/%d", output.Pending, len(output.Upcoming))
	}

	assertErrorIs(t, service.Pause(t.Context(), GuildInput{GuildID: testGuildID}), nil)
	assertErrorIs(t, service.Resume(t.Context(), GuildInput{GuildID: testGuildID}), nil)
	assertErrorIs(t, service.Next(t.Context(), GuildInput{GuildID: testGuildID}), nil)
	assertErrorIs(t, service.Stop(t.Context(), GuildInput{GuildID: testGuildID}), nil)

	output, err = service.Queue(t.Context(), GuildInput{GuildID: testGuildID})
	assertErrorIs(t, err, nil)
	if output.Status != domain.StatusOff || output.Pending != 0 {
		t.Errorf("expected stopped player, got %+v", output)
	}
}
