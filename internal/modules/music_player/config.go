package music_player

import (
	"fmt"
	"time"

	"github.com/sglre6355/jukebox/internal/modules/music_player/infrastructure"
)

// Resolver backends.
const (
	ResolverBackendYouTube  = "youtube"
	ResolverBackendYtdlp    = "ytdlp"
	ResolverBackendLavalink = "lavalink"
)

// Config holds the music player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"            envDefault:"false"`

	ResolverBackend     string `env:"RESOLVER_BACKEND"       envDefault:"youtube"`
	SearchSource        string `env:"SEARCH_SOURCE"          envDefault:"youtube"`
	ResolverQuotaPerDay int    `env:"RESOLVER_QUOTA_PER_DAY" envDefault:"10000"`
	PlaylistLimit       int    `env:"PLAYLIST_LIMIT"         envDefault:"200"`

	QueuePreviewSize  int           `env:"QUEUE_PREVIEW_SIZE"  envDefault:"12"`
	PlayerIdleTimeout time.Duration `env:"PLAYER_IDLE_TIMEOUT" envDefault:"10m"`
	CommandTimeout    time.Duration `env:"COMMAND_TIMEOUT"     envDefault:"30s"`
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch c.ResolverBackend {
	case ResolverBackendYouTube, ResolverBackendYtdlp, ResolverBackendLavalink:
	default:
		return fmt.Errorf("unknown resolver backend %q", c.ResolverBackend)
	}

	if _, err := infrastructure.ParseSearchSource(c.SearchSource); err != nil {
		return err
	}

	if c.ResolverQuotaPerDay < infrastructure.SearchCost {
		return fmt.Errorf("resolver quota %d is below the cost of one search", c.ResolverQuotaPerDay)
	}
	if c.QueuePreviewSize < 0 {
		return fmt.Errorf("queue preview size must not be negative, got %d", c.QueuePreviewSize)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive, got %v", c.CommandTimeout)
	}

	return nil
}
