// Package stream fans transfer events out to in-process subscribers,
// primarily the WebSocket feed.
package stream

import (
	"log/slog"
	"sync"

	"ledgerd/cmd/internal/events"
)

const subscriberBuffer = 16

// Hub is a broadcast hub for transfer events.
//
// Publish never blocks: a subscriber that falls behind its buffer misses
// events rather than stalling the transfer path.
type Hub struct {
	log *slog.Logger

	mu   sync.Mutex
	subs map[chan events.TransferCompleted]struct{}
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:  log,
		subs: make(map[chan events.TransferCompleted]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its channel plus a cancel
// function. Cancel is idempotent and closes the channel.
func (h *Hub) Subscribe() (<-chan events.TransferCompleted, func()) {
	ch := make(chan events.TransferCompleted, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every current subscriber, dropping it for any
// subscriber whose buffer is full.
func (h *Hub) Publish(ev events.TransferCompleted) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Debug("stream.subscriber.slow", "transfer_id", ev.TransferID)
		}
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
