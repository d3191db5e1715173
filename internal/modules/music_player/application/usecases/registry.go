package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// shutdownTimeout bounds how long a reaped or closed player may take to leave its channel.
const shutdownTimeout = 10 * time.Second

// PlayerRegistry holds one Player per guild.
// Players are created on first use and torn down once they have been
// disconnected and unused for longer than the idle timeout.
type PlayerRegistry struct {
	deps        PlayerDependencies
	idleTimeout time.Duration

	mu      sync.Mutex
	players map[snowflake.ID]*Player
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewPlayerRegistry creates a new PlayerRegistry.
// A non-positive idleTimeout disables reaping.
func NewPlayerRegistry(deps PlayerDependencies, idleTimeout time.Duration) *PlayerRegistry {
	return &PlayerRegistry{
		deps:        deps,
		idleTimeout: idleTimeout,
		players:     make(map[snowflake.ID]*Player),
		done:        make(chan struct{}),
	}
}

// Get returns the player of the guild, creating it if needed.
// Returns nil once the registry has been closed.
func (r *PlayerRegistry) Get(guildID snowflake.ID) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	player, ok := r.players[guildID]
	if !ok {
		player = NewPlayer(guildID, r.deps)
		r.players[guildID] = player
		slog.Debug("player created", "guild", guildID)
	}
	player.touch()

	return player
}

// Lookup returns the player of the guild if one exists.
func (r *PlayerRegistry) Lookup(guildID snowflake.ID) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[guildID]
	return player, ok
}

// Len returns the number of live players.
func (r *PlayerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Start begins reaping idle players in the background.
func (r *PlayerRegistry) Start() {
	if r.idleTimeout <= 0 {
		return
	}

	interval := max(r.idleTimeout/4, time.Second)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.done:
				return
			case now := <-ticker.C:
				if n := r.reap(now); n > 0 {
					slog.Debug("reaped idle players", "count", n)
				}
			}
		}
	}()
}

// reap tears down players that are disconnected and idle past the timeout.
func (r *PlayerRegistry) reap(now time.Time) int {
	r.mu.Lock()
	var idle []*Player
	for guildID, player := range r.players {
		lastActive, connected := player.idleSince()
		if connected || now.Sub(lastActive) < r.idleTimeout {
			continue
		}
		delete(r.players, guildID)
		idle = append(idle, player)
	}
	r.mu.Unlock()

	for _, player := range idle {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		player.Shutdown(ctx)
		cancel()
	}

	return len(idle)
}

// Close shuts down every player and stops the reaper.
func (r *PlayerRegistry) Close(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	players := r.players
	r.players = make(map[snowflake.ID]*Player)
	r.mu.Unlock()

	close(r.done)
	r.wg.Wait()

	var wg sync.WaitGroup
	for _, player := range players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			player.Shutdown(ctx)
		}()
	}
	wg.Wait()

	slog.Debug("player registry closed", "players", len(players))
}
