package bucket

import (
	"bytes"
	"errors"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	b := New()

	if err := b.Put("k", []byte("v1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := b.Get("k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Fatalf("Get returned %q, want %q", got, "v1")
	}

	if err := b.Put("k", []byte("v2")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	got, _ = b.Get("k")
	if !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("Get after overwrite returned %q, want %q", got, "v2")
	}

	if err := b.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := b.Get("k"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get after delete returned %v, want ErrKeyNotFound", err)
	}

	// Deleting a missing key is not an error.
	if err := b.Delete("missing"); err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
}

func TestGetMissingKey(t *testing.T) {
	b := New()
	if _, err := b.Get("nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get returned %v, want ErrKeyNotFound", err)
	}
}

func TestValuesAreCopied(t *testing.T) {
	b := New()

	in := []byte("hello")
	if err := b.Put("k", in); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	in[0] = 'X'

	out, err := b.Get("k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(out, []byte("hello")) {
		t.Fatalf("stored value aliased caller buffer: %q", out)
	}

	out[0] = 'Y'
	again, _ := b.Get("k")
	if !bytes.Equal(again, []byte("hello")) {
		t.Fatalf("returned value aliased stored buffer: %q", again)
	}
}

func TestStats(t *testing.T) {
	b := New()
	b.Put("a", []byte("12"))
	b.Put("b", []byte("3456"))

	s := b.Stats()
	if s.Keys != 2 {
		t.Fatalf("Stats.Keys = %d, want 2", s.Keys)
	}
	if s.Bytes != 6 {
		t.Fatalf("Stats.Bytes = %d, want 6", s.Bytes)
	}
}

func TestKeys(t *testing.T) {
	b := New()
	b.Put("a", nil)
	b.Put("b", nil)

	keys := b.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys returned %d entries, want 2", len(keys))
	}
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("Keys returned %v", keys)
	}
}

func TestStopIsTerminal(t *testing.T) {
	b := New()
	b.Put("k", []byte("v"))
	b.Stop()

	select {
	case <-b.Done():
	default:
		t.Fatalf("Done not closed after Stop")
	}

	if _, err := b.Get("k"); !errors.Is(err, ErrStopped) {
		t.Fatalf("Get after Stop returned %v, want ErrStopped", err)
	}
	if err := b.Put("k", []byte("v")); !errors.Is(err, ErrStopped) {
		t.Fatalf("Put after Stop returned %v, want ErrStopped", err)
	}
	if err := b.Delete("k"); !errors.Is(err, ErrStopped) {
		t.Fatalf("Delete after Stop returned %v, want ErrStopped", err)
	}

	// Stop is idempotent; a second call must not panic on the closed channel.
	b.Stop()
	select {
	case <-b.Done():
	default:
		t.Fatalf("Done not closed after second Stop")
	}
}

func TestIDsAreUnique(t *testing.T) {
	if New().ID() == New().ID() {
		t.Fatalf("two buckets share an ID")
	}
}
