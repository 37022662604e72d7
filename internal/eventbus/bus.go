package eventbus

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	TaskCreated       EventType = "task.created"
	TaskUpdated       EventType = "task.updated"
	TaskMoveCommitted EventType = "task.move.committed"
	TaskMoveFailed    EventType = "task.move.failed"
	BoardCreated      EventType = "board.created"
	WorkspaceCreated  EventType = "workspace.created"
	SessionChanged    EventType = "session.changed"
)

type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	ResourceID string            `json:"resource_id"`
	Payload    string            `json:"payload,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Bus is an in-process fan-out of events. Slow subscribers lose events
// instead of blocking publishers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Event
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *Event),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *Event) {
	id := ulid.Make().String()
	ch := make(chan *Event, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(event *Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// buffer full, drop event for this subscriber
		}
	}
}

func (b *Bus) PublishNew(eventType EventType, resourceID string, payload string, metadata map[string]string) {
	if b == nil {
		return
	}
	b.Publish(&Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		ResourceID: resourceID,
		Payload:    payload,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	})
}
