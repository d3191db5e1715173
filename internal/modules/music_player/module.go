package music_player

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/sglre6355/jukebox/internal/bot"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebox/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/jukebox/internal/modules/music_player/presentation/discord"
)

const (
	lavalinkConnectTimeout = 15 * time.Second
	shutdownTimeout        = 10 * time.Second
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*MusicPlayerModule)(nil)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	lavalinkAdapter *infrastructure.LavalinkAdapter

	eventBus            *infrastructure.ChannelEventBus
	registry            *usecases.PlayerRegistry
	notificationHandler *application.NotificationEventHandler
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":    m.commandHandlers.HandlePlay,
		"stop":    m.commandHandlers.HandleStop,
		"pause":   m.commandHandlers.HandlePause,
		"resume":  m.commandHandlers.HandleResume,
		"next":    m.commandHandlers.HandleNext,
		"skip":    m.commandHandlers.HandleNext,
		"queue":   m.commandHandlers.HandleQueue,
		"empty":   m.commandHandlers.HandleEmpty,
		"shuffle": m.commandHandlers.HandleShuffle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(_ *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			if m.lavalinkAdapter != nil {
				m.lavalinkAdapter.OnVoiceServerUpdate(event)
			}
		},
		func(_ *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			if m.lavalinkAdapter != nil {
				m.lavalinkAdapter.OnVoiceStateUpdate(event)
			}
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid music_player config: %w", err)
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return fmt.Errorf("music_player requires a Discord session")
	}
	if m.config == nil {
		return fmt.Errorf("music_player config is not loaded")
	}

	searchSource, err := infrastructure.ParseSearchSource(m.config.SearchSource)
	if err != nil {
		return err
	}

	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	ctx, cancel := context.WithTimeout(context.Background(), lavalinkConnectTimeout)
	defer cancel()

	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(ctx, deps.Session, infrastructure.LavalinkConfig{
		Address:      m.config.LavalinkAddress,
		Password:     m.config.LavalinkPassword,
		Secure:       m.config.LavalinkSecure,
		SearchSource: searchSource,
	})
	if err != nil {
		m.eventBus.Close()
		return err
	}
	m.lavalinkAdapter = lavalinkAdapter

	resolver := infrastructure.NewRateLimitedResolver(
		m.newResolver(searchSource),
		m.config.ResolverQuotaPerDay,
	)

	m.registry = usecases.NewPlayerRegistry(usecases.PlayerDependencies{
		Dispatcher:  usecases.NewQueryDispatcher(resolver),
		Transport:   lavalinkAdapter,
		Opener:      lavalinkAdapter,
		Publisher:   m.eventBus,
		PreviewSize: m.config.QueuePreviewSize,
	}, m.config.PlayerIdleTimeout)
	m.registry.Start()

	voiceState := infrastructure.NewVoiceStateProvider(deps.Session.State)
	player := usecases.NewPlayerService(m.registry, voiceState)

	m.notificationHandler = application.NewNotificationEventHandler(
		m.eventBus,
		infrastructure.NewNotifier(deps.Session),
		infrastructure.NewDiscordUserInfoProvider(deps.Session),
	)
	if err := m.notificationHandler.Start(); err != nil {
		return err
	}

	m.commandHandlers = discord.NewCommandHandlers(player, m.config.CommandTimeout)

	slog.Info("music_player module initialized",
		"resolver", m.config.ResolverBackend,
		"search_source", searchSource,
	)

	return nil
}

// newResolver builds the configured resolver backend.
// The backend name is checked by Config.Validate.
func (m *MusicPlayerModule) newResolver(source infrastructure.SearchSource) ports.TrackResolver {
	switch m.config.ResolverBackend {
	case ResolverBackendYtdlp:
		return infrastructure.NewYtdlpResolver(source, m.config.PlaylistLimit)
	case ResolverBackendLavalink:
		return m.lavalinkAdapter
	default:
		return infrastructure.NewYouTubeResolver(nil, source)
	}
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	// Players publish while disconnecting, so they stop before the bus.
	if m.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		m.registry.Close(ctx)
		cancel()
	}

	if m.eventBus != nil {
		m.eventBus.Close()
	}

	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}

	return nil
}
