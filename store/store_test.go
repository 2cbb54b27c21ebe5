package store_test

import (
	"testing"

	"lanefeed/store"
)

func TestRoundTripOnDisk(t *testing.T) {
	dir := t.TempDir()

	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.Put("recs:u1:movie:all", []byte(`{"items":[]}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen to verify the value survived the process boundary.
	s, err = store.Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	val, ok, err := s.Get("recs:u1:movie:all")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || string(val) != `{"items":[]}` {
		t.Fatalf("unexpected value after reopen: ok=%v val=%q", ok, val)
	}
}

func TestMissingKey(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	_, ok, err := s.Get("exclusions:nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("missing key must report a miss")
	}
}

func TestMemoryOnlyMode(t *testing.T) {
	s, err := store.Open("")
	if err != nil {
		t.Fatalf("open memory-only: %v", err)
	}
	defer s.Close()

	if err := s.Put("k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	val, ok, err := s.Get("k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("unexpected memory-only read: %q ok=%v err=%v", val, ok, err)
	}

	// Mutating the returned slice must not corrupt the stored copy.
	val[0] = 'x'
	again, _, _ := s.Get("k")
	if string(again) != "v" {
		t.Fatalf("stored value was aliased by the caller")
	}
}

func TestPutOverwrites(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	s.Put("k", []byte("one"))
	s.Put("k", []byte("two"))

	val, ok, _ := s.Get("k")
	if !ok || string(val) != "two" {
		t.Fatalf("expected overwrite, got %q", val)
	}
}
