package notify

import (
	"context"
	"log/slog"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Broker fans events out to in-process subscribers of the same owner.
// A subscriber whose buffer is full misses the event rather than blocking
// the pipeline.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscriber
}

type subscriber struct {
	ownerID string
	ch      chan cloudevents.Event
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber for ownerID's events. The returned cancel
// func unregisters it and closes the channel; it is safe to call twice.
func (b *Broker) Subscribe(ownerID string, buffer int) (<-chan cloudevents.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan cloudevents.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscriber{ownerID: ownerID, ch: ch}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Broker) Publish(ctx context.Context, e cloudevents.Event) error {
	owner := OwnerOf(e)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.ownerID != owner {
			continue
		}
		select {
		case s.ch <- e:
		default:
			slog.Warn("Dropping event for slow subscriber.", "eventId", e.ID(), "ownerId", owner)
		}
	}
	return nil
}

// Subscribers reports the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
