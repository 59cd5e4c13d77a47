package monitor

import (
	"context"
	"sync"

	"github.com/oshokin/flow-monitor/internal/domain/alarm"
	"github.com/oshokin/flow-monitor/internal/logger"
)

// DefaultHubBuffer is the per-subscriber queue length.
const DefaultHubBuffer = 64

// Hub fans alarm events out to stream subscribers. A subscriber that does
// not keep up loses events instead of blocking the poll cycle.
type Hub struct {
	// mu guards subscribers.
	mu          sync.Mutex
	subscribers map[chan *alarm.Event]struct{}
	buffer      int
}

// NewHub creates a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultHubBuffer
	}

	return &Hub{
		subscribers: make(map[chan *alarm.Event]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a subscriber. The returned function unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan *alarm.Event, func()) {
	ch := make(chan *alarm.Event, h.buffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

// Notify implements the engine notifier.
func (h *Hub) Notify(ctx context.Context, events []*alarm.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		for _, e := range events {
			select {
			case ch <- e:
			default:
				logger.WarnKV(ctx, "Alarm stream subscriber is full, event dropped", "id", e.ID)
			}
		}
	}
}
