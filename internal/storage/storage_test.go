package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "datastore.json"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestThreadID_RoundTrip(t *testing.T) {
	s := newTestStorage(t)

	id, err := s.ThreadID("c1")
	if err != nil {
		t.Fatal(err)
	}
	if id != "" {
		t.Errorf("unknown chat should have no thread, got %q", id)
	}

	if err := s.SetThreadID("c1", "thread_abc"); err != nil {
		t.Fatal(err)
	}
	id, err = s.ThreadID("c1")
	if err != nil {
		t.Fatal(err)
	}
	if id != "thread_abc" {
		t.Errorf("ThreadID = %q", id)
	}
}

func TestDeleteThread_KeepsRestOfRecord(t *testing.T) {
	s := newTestStorage(t)
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	if err := s.SetThreadID("c1", "thread_abc"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetLastResponseAt("c1", at); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteThread("c1"); err != nil {
		t.Fatal(err)
	}

	id, err := s.ThreadID("c1")
	if err != nil {
		t.Fatal(err)
	}
	if id != "" {
		t.Errorf("thread should be cleared, got %q", id)
	}
	last, err := s.LastResponseAt("c1")
	if err != nil {
		t.Fatal(err)
	}
	if !last.Equal(at) {
		t.Errorf("last response time lost on thread delete: %v", last)
	}
}

func TestDeleteThread_UnknownChat(t *testing.T) {
	s := newTestStorage(t)
	if err := s.DeleteThread("never-seen"); err != nil {
		t.Errorf("deleting an unknown chat must be a no-op, got %v", err)
	}
}

func TestAllThreads(t *testing.T) {
	s := newTestStorage(t)

	if err := s.SetThreadID("c1", "t1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetThreadID("c2", "t2"); err != nil {
		t.Fatal(err)
	}
	// c3 has state but no thread; it must not be listed.
	if err := s.SetLastResponseAt("c3", time.Now()); err != nil {
		t.Fatal(err)
	}

	threads, err := s.AllThreads()
	if err != nil {
		t.Fatal(err)
	}
	if len(threads) != 2 || threads["c1"] != "t1" || threads["c2"] != "t2" {
		t.Errorf("AllThreads = %v", threads)
	}
}

func TestLastResponseAt_DefaultsToZero(t *testing.T) {
	s := newTestStorage(t)
	last, err := s.LastResponseAt("c1")
	if err != nil {
		t.Fatal(err)
	}
	if !last.IsZero() {
		t.Errorf("expected zero time, got %v", last)
	}
}
