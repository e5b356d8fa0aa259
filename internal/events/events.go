package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindCreated Kind = "created"
	KindExited  Kind = "exited"
)

// Event describes a registry lifecycle transition.
type Event struct {
	Kind     Kind      `json:"kind"`
	Name     string    `json:"name"`
	WorkerID uuid.UUID `json:"worker_id"`
	At       time.Time `json:"at"`
}

func Created(name string, workerID uuid.UUID) Event {
	return Event{Kind: KindCreated, Name: name, WorkerID: workerID, At: time.Now()}
}

func Exited(name string, workerID uuid.UUID) Event {
	return Event{Kind: KindExited, Name: name, WorkerID: workerID, At: time.Now()}
}

// HandlerFunc processes one event. A non-nil error aborts the publish and is
// fatal to the publishing controller.
type HandlerFunc func(Event) error

// Publisher delivers events to subscribers synchronously: Publish does not
// return until every handler has run. Subscribers that need to be slow or
// unreliable should bridge to their own queue (see Hub); registering a slow
// handler deliberately back-pressures the registry.
type Publisher struct {
	mu       sync.RWMutex
	handlers []HandlerFunc
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Subscribe(fn HandlerFunc) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.handlers = append(p.handlers, fn)
	p.mu.Unlock()
}

// Publish runs every handler in subscription order. The first handler error
// stops delivery and is returned to the caller.
func (p *Publisher) Publish(e Event) error {
	p.mu.RLock()
	handlers := p.handlers
	p.mu.RUnlock()

	for _, fn := range handlers {
		if err := fn(e); err != nil {
			return fmt.Errorf("publish %s(%s): %w", e.Kind, e.Name, err)
		}
	}
	return nil
}
