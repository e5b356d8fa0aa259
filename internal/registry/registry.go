package registry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yungbote/bucketd/internal/bucket"
	"github.com/yungbote/bucketd/internal/events"
	"github.com/yungbote/bucketd/internal/platform/logger"
)

// Spawner creates a new worker on demand. Spawn failures are fatal to the
// triggering create request only; no partial registry state is left behind.
type Spawner interface {
	Spawn() (*bucket.Bucket, error)
}

// Publisher receives lifecycle events synchronously. A publish error is
// fatal to the controller: event delivery is as load-bearing as the state
// it reports.
type Publisher interface {
	Publish(events.Event) error
}

// Mailbox message kinds. Anything else that lands in the mailbox is ignored.
type createMsg struct {
	name string
}

type exitMsg struct {
	token  uuid.UUID
	worker *bucket.Bucket
}

// Registry maps names to bucket workers, guarantees at most one worker per
// name, and unregisters a name when its worker terminates. All mutation
// funnels through a single goroutine (Run); lookups bypass it entirely via
// the Table.
type Registry struct {
	table     *Table
	spawner   Spawner
	publisher Publisher
	log       *logger.Logger

	mailbox chan any
	closed  chan struct{}

	// watches resolves termination signals back to names. Only the Run
	// goroutine touches it, so it needs no locking.
	watches map[uuid.UUID]string
}

type Config struct {
	// MailboxSize is the controller queue capacity. Senders block when it is
	// full, preserving arrival order.
	MailboxSize int
}

func New(table *Table, spawner Spawner, publisher Publisher, log *logger.Logger, cfg Config) *Registry {
	size := cfg.MailboxSize
	if size <= 0 {
		size = 64
	}
	return &Registry{
		table:     table,
		spawner:   spawner,
		publisher: publisher,
		log:       log.With("component", "Registry"),
		mailbox:   make(chan any, size),
		closed:    make(chan struct{}),
		watches:   make(map[uuid.UUID]string),
	}
}

// Table exposes the lookup table for readers.
func (r *Registry) Table() *Table {
	return r.table
}

// CreateIfAbsent asks the controller to ensure a worker exists for name.
// Fire-and-forget: there is no acknowledgment and no cancellation. A no-op
// if the name is already registered by the time the request is processed.
func (r *Registry) CreateIfAbsent(name string) {
	select {
	case r.mailbox <- createMsg{name: name}:
	case <-r.closed:
	}
}

// Run owns all registry state and processes requests one at a time until ctx
// is cancelled. It returns a non-nil error only when event publication
// fails; the caller is expected to treat that as fatal and restart the
// process with fresh state.
func (r *Registry) Run(ctx context.Context) error {
	defer close(r.closed)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-r.mailbox:
			switch m := msg.(type) {
			case createMsg:
				if err := r.handleCreate(m.name); err != nil {
					return err
				}
			case exitMsg:
				if err := r.handleExit(m); err != nil {
					return err
				}
			default:
				// Unrecognized messages are dropped for forward compatibility.
			}
		}
	}
}

func (r *Registry) handleCreate(name string) error {
	if _, ok := r.table.Lookup(name); ok {
		// Already registered: idempotent no-op. Two racing creates for the
		// same name serialize here, so only the first ever spawns.
		return nil
	}

	w, err := r.spawner.Spawn()
	if err != nil {
		r.log.Error("spawn failed", "name", name, "error", err)
		return nil
	}

	// Watch before the mapping becomes visible: a worker that dies
	// immediately still produces an exit signal because Done is already
	// closed when the watch starts.
	token := r.beginWatch(w)
	r.watches[token] = name
	r.table.put(name, w)

	if err := r.publisher.Publish(events.Created(name, w.ID())); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	r.log.Info("bucket registered", "name", name, "worker_id", w.ID())
	return nil
}

func (r *Registry) handleExit(m exitMsg) error {
	name, ok := r.watches[m.token]
	if !ok {
		// Unknown token: signal for a watch we no longer (or never) hold.
		return nil
	}
	delete(r.watches, m.token)
	r.table.delete(name)

	if err := r.publisher.Publish(events.Exited(name, m.worker.ID())); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	r.log.Info("bucket unregistered", "name", name, "worker_id", m.worker.ID())
	return nil
}

// beginWatch observes a worker for termination and posts the exit back into
// the mailbox, so it is handled on the controller goroutine like any other
// mutation. Exactly one signal is delivered per watch.
func (r *Registry) beginWatch(w *bucket.Bucket) uuid.UUID {
	token := uuid.New()
	go func() {
		<-w.Done()
		select {
		case r.mailbox <- exitMsg{token: token, worker: w}:
		case <-r.closed:
		}
	}()
	return token
}
