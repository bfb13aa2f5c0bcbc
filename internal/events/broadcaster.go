package events

import (
	"context"
	"sync"
)

// Broadcaster relays dispatched events to any number of listeners. Slow
// listeners miss events rather than block the dispatcher.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[chan Event]struct{}
	buffer    int
}

// NewBroadcaster subscribes a broadcaster to every event on dispatcher.
func NewBroadcaster(dispatcher Dispatcher, buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	b := &Broadcaster{listeners: make(map[chan Event]struct{}), buffer: buffer}
	dispatcher.Subscribe(EventAny, b.handle)
	return b
}

// Listen registers a listener. The returned cancel func must be called once
// the listener is done; it closes the channel.
func (b *Broadcaster) Listen() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	b.listeners[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Listeners returns the number of registered listeners.
func (b *Broadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Broadcaster) handle(_ context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.listeners {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}
