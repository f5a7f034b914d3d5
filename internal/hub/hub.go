package hub

import (
	"log"
	"sync"

	"github.com/atikulmunna/lograte/internal/model"
)

const subscriberBuffer = 1024

// Hub broadcasts report events to live subscribers. It satisfies
// output.Renderer, so a run can publish to it alongside its normal output.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan model.Event]struct{}
	dropped     int64
	closed      bool
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{subscribers: make(map[chan model.Event]struct{})}
}

// Subscribe returns a buffered channel that receives every event published
// after the call, and a function that detaches it. The channel is closed by
// the cancel function or by Close, whichever comes first.
func (h *Hub) Subscribe() (<-chan model.Event, func()) {
	ch := make(chan model.Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of attached subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns the total number of events dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Render broadcasts ev to all subscribers. It never blocks: if a
// subscriber's channel is full, the event is dropped for that subscriber.
func (h *Hub) Render(ev model.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped++
			log.Printf("hub: dropped event for slow consumer (total dropped: %d)", h.dropped)
		}
	}
	return nil
}

// Close closes all subscriber channels. Later subscriptions get a closed
// channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, ch)
	}
	h.closed = true
}
