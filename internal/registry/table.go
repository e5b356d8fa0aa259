package registry

import (
	"sync"

	"github.com/yungbote/bucketd/internal/bucket"
)

// Table is the shared name→worker lookup table. Reads are lock-free and go
// straight to the underlying sync.Map, so callers never contend with the
// controller. Mutators are unexported: the only writer is the controller
// goroutine in this package, which is what keeps writes serialized.
type Table struct {
	m sync.Map // string -> *bucket.Bucket
}

func NewTable() *Table {
	return &Table{}
}

// Lookup returns the worker registered under name, if any. This is the hot
// path and does not pass through the controller.
func (t *Table) Lookup(name string) (*bucket.Bucket, bool) {
	v, ok := t.m.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*bucket.Bucket), true
}

// Names returns all registered names. Order is not guaranteed; the snapshot
// is only consistent when no create/exit is in flight.
func (t *Table) Names() []string {
	var names []string
	t.m.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	return names
}

// Len counts the current entries.
func (t *Table) Len() int {
	n := 0
	t.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (t *Table) put(name string, b *bucket.Bucket) {
	t.m.Store(name, b)
}

func (t *Table) delete(name string) {
	t.m.Delete(name)
}
