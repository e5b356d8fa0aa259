package supervisor

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/yungbote/bucketd/internal/bucket"
	"github.com/yungbote/bucketd/internal/platform/logger"
)

// ErrTooManyWorkers is returned by Spawn when the worker limit is reached.
var ErrTooManyWorkers = errors.New("worker limit reached")

// Supervisor creates bucket workers and owns their lifecycle. The registry
// holds read-only references to workers; only the supervisor stops them.
// Workers are temporary: a dead worker is never restarted.
type Supervisor struct {
	log        *logger.Logger
	maxWorkers int

	mu       sync.Mutex
	children map[uuid.UUID]*bucket.Bucket
}

type Config struct {
	// MaxWorkers caps concurrent live workers. Zero means unlimited.
	MaxWorkers int
}

func New(log *logger.Logger, cfg Config) *Supervisor {
	return &Supervisor{
		log:        log.With("component", "Supervisor"),
		maxWorkers: cfg.MaxWorkers,
		children:   make(map[uuid.UUID]*bucket.Bucket),
	}
}

// Spawn creates and tracks a new bucket worker.
func (s *Supervisor) Spawn() (*bucket.Bucket, error) {
	s.mu.Lock()
	if s.maxWorkers > 0 && len(s.children) >= s.maxWorkers {
		s.mu.Unlock()
		return nil, ErrTooManyWorkers
	}
	b := bucket.New()
	s.children[b.ID()] = b
	s.mu.Unlock()

	// Reap the child from the tracking map once it terminates, however
	// that happens.
	go func() {
		<-b.Done()
		s.mu.Lock()
		delete(s.children, b.ID())
		s.mu.Unlock()
	}()

	s.log.Debug("worker spawned", "worker_id", b.ID())
	return b, nil
}

// Stop terminates the worker with the given ID. Returns false if the
// supervisor doesn't know it (already dead or never spawned here).
func (s *Supervisor) Stop(id uuid.UUID) bool {
	s.mu.Lock()
	b, ok := s.children[id]
	s.mu.Unlock()

	if !ok {
		return false
	}
	b.Stop()
	s.log.Debug("worker stopped", "worker_id", id)
	return true
}

// StopAll terminates every live worker. Called on shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	children := make([]*bucket.Bucket, 0, len(s.children))
	for _, b := range s.children {
		children = append(children, b)
	}
	s.mu.Unlock()

	for _, b := range children {
		b.Stop()
	}
	if len(children) > 0 {
		s.log.Info("all workers stopped", "count", len(children))
	}
}

// Len returns the number of live workers.
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.children)
}
