package music_player

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		LavalinkAddress:     "localhost:2333",
		LavalinkPassword:    "youshallnotpass",
		ResolverBackend:     ResolverBackendYouTube,
		SearchSource:        "youtube",
		ResolverQuotaPerDay: 10000,
		PlaylistLimit:       200,
		QueuePreviewSize:    12,
		PlayerIdleTimeout:   10 * time.Minute,
		CommandTimeout:      30 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "ytdlp backend", modify: func(c *Config) { c.ResolverBackend = ResolverBackendYtdlp }},
		{name: "lavalink backend", modify: func(c *Config) { c.ResolverBackend = ResolverBackendLavalink }},
		{name: "music search", modify: func(c *Config) { c.SearchSource = "youtube_music" }},
		{name: "unknown backend", modify: func(c *Config) { c.ResolverBackend = "spotify" }, wantErr: true},
		{name: "unknown search source", modify: func(c *Config) { c.SearchSource = "soundcloud" }, wantErr: true},
		{name: "quota below one search", modify: func(c *Config) { c.ResolverQuotaPerDay = 99 }, wantErr: true},
		{name: "negative preview", modify: func(c *Config) { c.QueuePreviewSize = -1 }, wantErr: true},
		{name: "zero command timeout", modify: func(c *Config) { c.CommandTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMusicPlayerModule_LoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("LAVALINK_ADDRESS", "lavalink:2333")
		t.Setenv("LAVALINK_PASSWORD", "secret")

		m := &MusicPlayerModule{}
		if err := m.LoadConfig(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := Config{
			LavalinkAddress:     "lavalink:2333",
			LavalinkPassword:    "secret",
			ResolverBackend:     ResolverBackendYouTube,
			SearchSource:        "youtube",
			ResolverQuotaPerDay: 10000,
			PlaylistLimit:       200,
			QueuePreviewSize:    12,
			PlayerIdleTimeout:   10 * time.Minute,
			CommandTimeout:      30 * time.Second,
		}
		if *m.config != want {
			t.Errorf("expected %+v, got %+v", want, *m.config)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("LAVALINK_ADDRESS", "lavalink:443")
		t.Setenv("LAVALINK_PASSWORD", "secret")
		t.Setenv("LAVALINK_SECURE", "true")
		t.Setenv("RESOLVER_BACKEND", "ytdlp")
		t.Setenv("SEARCH_SOURCE", "youtube_music")
		t.Setenv("PLAYER_IDLE_TIMEOUT", "0")

		m := &MusicPlayerModule{}
		if err := m.LoadConfig(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !m.config.LavalinkSecure {
			t.Error("expected secure Lavalink connection")
		}
		if m.config.ResolverBackend != ResolverBackendYtdlp {
			t.Errorf("expected ytdlp backend, got %q", m.config.ResolverBackend)
		}
		if m.config.SearchSource != "youtube_music" {
			t.Errorf("expected youtube_music, got %q", m.config.SearchSource)
		}
		if m.config.PlayerIdleTimeout != 0 {
			t.Errorf("expected idle timeout disabled, got %v", m.config.PlayerIdleTimeout)
		}
	})

	t.Run("missing lavalink address", func(t *testing.T) {
		t.Setenv("LAVALINK_ADDRESS", "")
		t.Setenv("LAVALINK_PASSWORD", "secret")

		m := &MusicPlayerModule{}
		if err := m.LoadConfig(); err == nil {
			t.Error("expected error for missing LAVALINK_ADDRESS")
		}
	})

	t.Run("invalid backend", func(t *testing.T) {
		t.Setenv("LAVALINK_ADDRESS", "lavalink:2333")
		t.Setenv("LAVALINK_PASSWORD", "secret")
		t.Setenv("RESOLVER_BACKEND", "spotify")

		m := &MusicPlayerModule{}
		if err := m.LoadConfig(); err == nil {
			t.Error("expected error for unknown backend")
		}
	})
}

func TestMusicPlayerModule_CommandHandlers(t *testing.T) {
	m := &MusicPlayerModule{}
	handlers := m.CommandHandlers()

	for _, cmd := range m.Commands() {
		if handlers[cmd.Name] == nil {
			t.Errorf("command %q has no handler", cmd.Name)
		}
	}
	if len(handlers) != len(m.Commands()) {
		t.Errorf("expected %d handlers, got %d", len(m.Commands()), len(handlers))
	}
}
