// Package event provides the process-wide publish/subscribe bus used to
// surface lifecycle notifications, progress updates, and command activity
// to the GUI transport layer.
package event

import "sync"

// Message is a published event.
type Message struct {
	// Channel is the logical channel the message was published on.
	Channel string

	// Payload is the message body. Payloads are plain data records;
	// subscribers must not mutate them.
	Payload any
}

// Handler receives published messages.
// Handlers must be non-blocking and should not call back into the Bus
// publisher path. Panics in handlers are recovered.
type Handler func(msg Message)

// Bus is a channel-named publish/subscribe bus.
// The zero value is not usable; use NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for a channel.
// Returns an unsubscribe function to remove the handler.
func (b *Bus) Subscribe(channel string, handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	b.handlers[channel] = append(b.handlers[channel], handler)
	index := len(b.handlers[channel]) - 1
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// Set to nil instead of removing to avoid index shifting issues
		if hs := b.handlers[channel]; index < len(hs) {
			hs[index] = nil
		}
	}
}

// SubscribeAll registers a handler for every channel.
func (b *Bus) SubscribeAll(handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	b.all = append(b.all, handler)
	index := len(b.all) - 1
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if index < len(b.all) {
			b.all[index] = nil
		}
	}
}

// Publish delivers a payload to every handler subscribed to the channel,
// in subscription order, synchronously.
func (b *Bus) Publish(channel string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[channel])+len(b.all))
	handlers = append(handlers, b.handlers[channel]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	msg := Message{Channel: channel, Payload: payload}
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				recover() // Ignore panics from handlers
			}()
			handler(msg)
		}()
	}
}

// SubscriberCount returns the number of live handlers for a channel.
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, h := range b.handlers[channel] {
		if h != nil {
			count++
		}
	}
	return count
}
