package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a named trigger carrying a JSON payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(e.Payload, v)
}

// Queue carries events from submitters to the dispatcher.
type Queue interface {
	Publish(ctx context.Context, ev Event) error
	Receive(ctx context.Context) (Event, error)
	Close() error
}

// ChannelQueue is an in-process Queue backed by a buffered channel.
type ChannelQueue struct {
	events chan Event
	done   chan struct{}
}

// NewChannelQueue creates an in-process queue with the given buffer size.
func NewChannelQueue(size int) *ChannelQueue {
	if size <= 0 {
		size = 256
	}
	return &ChannelQueue{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
}

// Publish enqueues an event, blocking while the buffer is full.
func (q *ChannelQueue) Publish(ctx context.Context, ev Event) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.events <- ev:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until an event is available, the context ends or the queue closes.
func (q *ChannelQueue) Receive(ctx context.Context) (Event, error) {
	select {
	case ev := <-q.events:
		return ev, nil
	case <-q.done:
		return Event{}, ErrQueueClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close stops the queue. Pending events are dropped.
func (q *ChannelQueue) Close() error {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
	return nil
}
