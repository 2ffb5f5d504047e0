package app

import (
	"sync"

	"live-quiz-service/internal/domain"
)

// Broadcaster fans lifecycle events out to per-session subscribers.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.SessionEvent]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]map[chan domain.SessionEvent]struct{})}
}

// Subscribe registers a listener for sessionID. The caller must invoke the
// returned cancel function to avoid leaks.
func (b *Broadcaster) Subscribe(sessionID string, initial domain.SessionEvent) (<-chan domain.SessionEvent, func()) {
	ch := make(chan domain.SessionEvent, 8)
	ch <- initial

	b.mu.Lock()
	subs, ok := b.subscribers[sessionID]
	if !ok {
		subs = make(map[chan domain.SessionEvent]struct{})
		b.subscribers[sessionID] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[sessionID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(b.subscribers, sessionID)
		}
	}
	return ch, cancel
}

// Publish delivers evt to every subscriber of its session without blocking.
func (b *Broadcaster) Publish(evt domain.SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[evt.SessionID] {
		select {
		case ch <- evt:
		default:
			// slow subscriber: drop the oldest event so the latest state wins
			select {
			case <-ch:
			default:
			}
			ch <- evt
		}
	}
}

// Subscribers reports how many listeners sessionID has.
func (b *Broadcaster) Subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[sessionID])
}
