package live

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// DefaultCapacity is the number of pending messages a subscriber may hold
const DefaultCapacity = 100

// Hub broadcasts serialized records to every current subscriber.
// Delivery is best effort: a subscriber whose queue is full misses the
// message, and nothing is kept for subscribers that join later.
type Hub struct {
	capacity int
	logger   zerolog.Logger

	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}

	broadcasts atomic.Int64
	delivered  atomic.Int64
	lagged     atomic.Int64
	unheard    atomic.Int64
}

// Subscription is one receive handle on the hub
type Subscription struct {
	ch     chan []byte
	missed atomic.Int64
	closed bool
}

// C returns the channel messages arrive on. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Missed returns how many messages were dropped because the queue was full
func (s *Subscription) Missed() int64 {
	return s.missed.Load()
}

// HubStats is a point-in-time view of the hub counters
type HubStats struct {
	Subscribers   int64
	Broadcasts    int64
	Delivered     int64
	Lagged        int64
	NoSubscribers int64
}

// NewHub creates a hub whose subscribers buffer up to capacity messages.
// A capacity below 1 falls back to DefaultCapacity.
func NewHub(capacity int, logger zerolog.Logger) *Hub {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Hub{
		capacity:    capacity,
		logger:      logger.With().Str("component", "hub").Logger(),
		subscribers: make(map[*Subscription]struct{}),
	}
}

// Subscribe returns a handle receiving every message broadcast from now on
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan []byte, h.capacity)}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription and closes its channel. Calling it
// more than once is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	delete(h.subscribers, sub)
	close(sub.ch)
}

// Broadcast sends message to all subscribers without blocking and returns
// how many received it
func (h *Hub) Broadcast(message []byte) int {
	h.broadcasts.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.subscribers) == 0 {
		h.unheard.Add(1)
		h.logger.Debug().Msg("no receivers connected, message not broadcast")
		return 0
	}

	delivered := 0
	for sub := range h.subscribers {
		select {
		case sub.ch <- message:
			delivered++
		default:
			sub.missed.Add(1)
			h.lagged.Add(1)
			h.logger.Warn().Msg("receiver lagging, message dropped")
		}
	}
	h.delivered.Add(int64(delivered))
	h.logger.Debug().Int("receivers", delivered).Int("subscribers", len(h.subscribers)).Msg("broadcast message")
	return delivered
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Stats returns the hub counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		Subscribers:   int64(h.Subscribers()),
		Broadcasts:    h.broadcasts.Load(),
		Delivered:     h.delivered.Load(),
		Lagged:        h.lagged.Load(),
		NoSubscribers: h.unheard.Load(),
	}
}
