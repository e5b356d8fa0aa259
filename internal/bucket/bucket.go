package bucket

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrKeyNotFound is returned when a key doesn't exist in the bucket.
var ErrKeyNotFound = errors.New("key not found")

// ErrStopped is returned by every operation after the bucket has terminated.
var ErrStopped = errors.New("bucket stopped")

// Stats contains size information for a bucket.
type Stats struct {
	Keys  int `json:"keys"`
	Bytes int `json:"bytes"`
}

// Bucket is a worker unit: an in-memory key/value store with a lifecycle.
// Once stopped it never comes back; the Done channel closes exactly once,
// for any terminal outcome, and stays closed. Watchers that start after the
// bucket died still observe the termination.
type Bucket struct {
	id uuid.UUID

	mu      sync.RWMutex
	data    map[string][]byte
	stopped bool

	done     chan struct{}
	stopOnce sync.Once
}

func New() *Bucket {
	return &Bucket{
		id:   uuid.New(),
		data: make(map[string][]byte),
		done: make(chan struct{}),
	}
}

// ID identifies this bucket instance. Two buckets never share an ID, even
// when they were created for the same registry name over time.
func (b *Bucket) ID() uuid.UUID {
	return b.id
}

// Done is closed when the bucket terminates.
func (b *Bucket) Done() <-chan struct{} {
	return b.done
}

// Stop terminates the bucket. Safe to call more than once. The registry
// never calls this; lifecycle authority belongs to the supervisor.
func (b *Bucket) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.data = nil
		b.mu.Unlock()
		close(b.done)
	})
}

// Get retrieves a value by key. Returns ErrKeyNotFound if the key doesn't
// exist. The returned slice is a copy.
func (b *Bucket) Get(key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		return nil, ErrStopped
	}
	v, ok := b.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores a value, overwriting any existing value for the key.
func (b *Bucket) Put(key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return ErrStopped
	}
	v := make([]byte, len(value))
	copy(v, value)
	b.data[key] = v
	return nil
}

// Delete removes a key. No error if the key doesn't exist.
func (b *Bucket) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return ErrStopped
	}
	delete(b.data, key)
	return nil
}

// Keys returns all keys in the bucket. Order is not guaranteed.
func (b *Bucket) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns the current key count and total value size.
func (b *Bucket) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Stats{Keys: len(b.data)}
	for _, v := range b.data {
		s.Bytes += len(v)
	}
	return s
}
