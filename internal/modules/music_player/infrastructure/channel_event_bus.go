package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/sglre6355/jukebox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// DefaultEventBufferSize is the default buffer size for the event channel.
const DefaultEventBufferSize = 100

var (
	// ErrEventBusClosed is returned when publishing to or subscribing on a closed bus.
	ErrEventBusClosed = errors.New("event bus closed")
	// ErrEventBufferFull is returned when an event is dropped because the buffer is full.
	ErrEventBufferFull = errors.New("event buffer full")
)

var eventInterface = reflect.TypeFor[domain.Event]()

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

// ChannelEventBus provides a channel-based event bus for async event handling.
// It implements both EventPublisher and EventSubscriber interfaces.
// All events travel through one channel, so handlers observe them in publication order.
type ChannelEventBus struct {
	events   chan domain.Event
	handlers map[reflect.Type][]func(context.Context, domain.Event)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		events:   make(chan domain.Event, bufferSize),
		handlers: make(map[reflect.Type][]func(context.Context, domain.Event)),
		ctx:      ctx,
		cancel:   cancel,
	}

	bus.wg.Add(1)
	go bus.dispatch()

	return bus
}

func (b *ChannelEventBus) dispatch() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.events:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.handlers[reflect.TypeOf(event)]
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

// --- EventPublisher interface ---

// Publish enqueues the event for delivery.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func (b *ChannelEventBus) Publish(event domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	eventType := reflect.TypeOf(event)

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", eventType)
		return ErrEventBusClosed
	}

	select {
	case b.events <- event:
		slog.Debug("published event", "type", eventType, "guild", event.Target().GuildID)
		return nil
	default:
		slog.Warn("event buffer full, dropping event", "type", eventType)
		return ErrEventBufferFull
	}
}

// --- EventSubscriber interface ---

// Subscribe registers a handler for events of the given concrete type.
func (b *ChannelEventBus) Subscribe(
	eventType reflect.Type,
	handler func(context.Context, domain.Event),
) error {
	if eventType == nil || !eventType.Implements(eventInterface) {
		return fmt.Errorf("type %v is not an event", eventType)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Close closes the event channel and stops the dispatcher.
// Events already buffered are dropped. After calling Close, publishing fails.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	// Cancel context to stop the dispatcher
	b.cancel()

	close(b.events)

	b.wg.Wait()

	slog.Debug("channel event bus closed")
}
