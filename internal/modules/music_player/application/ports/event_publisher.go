package ports

import "github.com/sglre6355/jukebox/internal/modules/music_player/domain"

// EventPublisher defines the interface for publishing events asynchronously.
// Events published by one goroutine are delivered in publication order.
type EventPublisher interface {
	Publish(event domain.Event) error
}
