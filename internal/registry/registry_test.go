package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/bucketd/internal/bucket"
	"github.com/yungbote/bucketd/internal/events"
	"github.com/yungbote/bucketd/internal/platform/logger"
)

type fakeSpawner struct {
	mu      sync.Mutex
	spawned []*bucket.Bucket
	err     error
}

func (s *fakeSpawner) Spawn() (*bucket.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	b := bucket.New()
	s.spawned = append(s.spawned, b)
	return b, nil
}

func (s *fakeSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spawned)
}

func (s *fakeSpawner) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) snapshot() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *recordingPublisher) countKind(k events.Kind, name string) int {
	n := 0
	for _, e := range p.snapshot() {
		if e.Kind == k && e.Name == name {
			n++
		}
	}
	return n
}

type harness struct {
	reg  *Registry
	sp   *fakeSpawner
	pub  *recordingPublisher
	done chan error
	stop context.CancelFunc
}

func startRegistry(t *testing.T) *harness {
	t.Helper()

	sp := &fakeSpawner{}
	pub := &recordingPublisher{}
	reg := New(NewTable(), sp, pub, logger.NewNop(), Config{MailboxSize: 8})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- reg.Run(ctx)
	}()

	h := &harness{reg: reg, sp: sp, pub: pub, done: done, stop: cancel}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("registry did not stop")
		}
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCreateRegistersBucket(t *testing.T) {
	h := startRegistry(t)

	h.reg.CreateIfAbsent("alice")

	waitFor(t, "alice registered", func() bool {
		_, ok := h.reg.Table().Lookup("alice")
		return ok
	})

	b, _ := h.reg.Table().Lookup("alice")
	if got := h.sp.count(); got != 1 {
		t.Fatalf("spawned %d workers, want 1", got)
	}
	evs := h.pub.snapshot()
	if len(evs) != 1 {
		t.Fatalf("published %d events, want 1: %+v", len(evs), evs)
	}
	if evs[0].Kind != events.KindCreated || evs[0].Name != "alice" || evs[0].WorkerID != b.ID() {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	h := startRegistry(t)

	h.reg.CreateIfAbsent("alice")
	h.reg.CreateIfAbsent("alice")

	waitFor(t, "alice registered", func() bool {
		_, ok := h.reg.Table().Lookup("alice")
		return ok
	})
	// Both messages have been processed once the second create's effects
	// would be visible; give the loop a moment to drain.
	waitFor(t, "mailbox drained", func() bool {
		return len(h.reg.mailbox) == 0
	})

	if got := h.sp.count(); got != 1 {
		t.Fatalf("spawned %d workers, want 1", got)
	}
	if got := h.pub.countKind(events.KindCreated, "alice"); got != 1 {
		t.Fatalf("published %d Created events, want 1", got)
	}
	if got := h.reg.Table().Len(); got != 1 {
		t.Fatalf("table has %d entries, want 1", got)
	}
}

func TestConcurrentCreatesSpawnOneWorker(t *testing.T) {
	h := startRegistry(t)

	const k = 16
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.reg.CreateIfAbsent("shared")
		}()
	}
	wg.Wait()

	waitFor(t, "shared registered", func() bool {
		_, ok := h.reg.Table().Lookup("shared")
		return ok
	})
	waitFor(t, "mailbox drained", func() bool {
		return len(h.reg.mailbox) == 0
	})

	if got := h.sp.count(); got != 1 {
		t.Fatalf("spawned %d workers, want 1", got)
	}
	if got := h.pub.countKind(events.KindCreated, "shared"); got != 1 {
		t.Fatalf("published %d Created events, want 1", got)
	}
}

func TestWorkerExitRemovesMapping(t *testing.T) {
	h := startRegistry(t)

	h.reg.CreateIfAbsent("bob")
	waitFor(t, "bob registered", func() bool {
		_, ok := h.reg.Table().Lookup("bob")
		return ok
	})
	b, _ := h.reg.Table().Lookup("bob")

	// Terminate the worker externally; the registry must notice on its own.
	b.Stop()

	waitFor(t, "bob unregistered", func() bool {
		_, ok := h.reg.Table().Lookup("bob")
		return !ok
	})
	if got := h.pub.countKind(events.KindExited, "bob"); got != 1 {
		t.Fatalf("published %d Exited events, want 1", got)
	}
}

func TestCreateAfterExitSpawnsFreshWorker(t *testing.T) {
	h := startRegistry(t)

	h.reg.CreateIfAbsent("carol")
	waitFor(t, "carol registered", func() bool {
		_, ok := h.reg.Table().Lookup("carol")
		return ok
	})
	first, _ := h.reg.Table().Lookup("carol")

	first.Stop()
	waitFor(t, "carol unregistered", func() bool {
		_, ok := h.reg.Table().Lookup("carol")
		return !ok
	})

	h.reg.CreateIfAbsent("carol")
	waitFor(t, "carol re-registered", func() bool {
		_, ok := h.reg.Table().Lookup("carol")
		return ok
	})

	second, _ := h.reg.Table().Lookup("carol")
	if second.ID() == first.ID() {
		t.Fatalf("expected a fresh worker after exit")
	}
}

func TestLookupUnknownName(t *testing.T) {
	h := startRegistry(t)

	if _, ok := h.reg.Table().Lookup("never-created"); ok {
		t.Fatalf("lookup of unknown name succeeded")
	}
	if got := h.sp.count(); got != 0 {
		t.Fatalf("lookup caused %d spawns", got)
	}
	if got := len(h.pub.snapshot()); got != 0 {
		t.Fatalf("lookup caused %d events", got)
	}
}

func TestSpawnFailureLeavesNoState(t *testing.T) {
	h := startRegistry(t)

	h.sp.setErr(errors.New("boom"))
	h.reg.CreateIfAbsent("dave")

	waitFor(t, "mailbox drained", func() bool {
		return len(h.reg.mailbox) == 0
	})
	time.Sleep(20 * time.Millisecond)

	if _, ok := h.reg.Table().Lookup("dave"); ok {
		t.Fatalf("failed create left a table entry")
	}
	if got := len(h.pub.snapshot()); got != 0 {
		t.Fatalf("failed create published %d events", got)
	}

	// The controller must survive spawn failures.
	h.sp.setErr(nil)
	h.reg.CreateIfAbsent("dave")
	waitFor(t, "dave registered", func() bool {
		_, ok := h.reg.Table().Lookup("dave")
		return ok
	})
}

func TestPublishFailureStopsController(t *testing.T) {
	sp := &fakeSpawner{}
	pub := &recordingPublisher{err: errors.New("subscriber down")}
	reg := New(NewTable(), sp, pub, logger.NewNop(), Config{MailboxSize: 8})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- reg.Run(ctx)
	}()

	reg.CreateIfAbsent("eve")

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("Run returned nil, want publish error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("controller kept running after publish failure")
	}
}

func TestUnknownTerminationTokenIgnored(t *testing.T) {
	h := startRegistry(t)

	h.reg.CreateIfAbsent("frank")
	waitFor(t, "frank registered", func() bool {
		_, ok := h.reg.Table().Lookup("frank")
		return ok
	})

	h.reg.mailbox <- exitMsg{token: uuid.New(), worker: bucket.New()}
	waitFor(t, "mailbox drained", func() bool {
		return len(h.reg.mailbox) == 0
	})
	time.Sleep(20 * time.Millisecond)

	if _, ok := h.reg.Table().Lookup("frank"); !ok {
		t.Fatalf("unknown termination signal removed a live mapping")
	}
	if got := h.pub.countKind(events.KindExited, "frank"); got != 0 {
		t.Fatalf("unknown termination signal published %d Exited events", got)
	}
}

func TestUnrecognizedMessageIgnored(t *testing.T) {
	h := startRegistry(t)

	h.reg.mailbox <- struct{ bogus string }{bogus: "hello"}
	h.reg.CreateIfAbsent("grace")

	waitFor(t, "grace registered", func() bool {
		_, ok := h.reg.Table().Lookup("grace")
		return ok
	})
}

func TestWatchOnAlreadyDeadWorker(t *testing.T) {
	// A worker can terminate between spawn and watch; the closed Done
	// channel must still deliver exactly one exit signal.
	h := startRegistry(t)

	h.reg.CreateIfAbsent("henry")
	waitFor(t, "henry registered", func() bool {
		_, ok := h.reg.Table().Lookup("henry")
		return ok
	})
	b, _ := h.reg.Table().Lookup("henry")
	b.Stop()

	waitFor(t, "henry unregistered", func() bool {
		_, ok := h.reg.Table().Lookup("henry")
		return !ok
	})
	if got := h.pub.countKind(events.KindExited, "henry"); got != 1 {
		t.Fatalf("published %d Exited events, want 1", got)
	}
}
