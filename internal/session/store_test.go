package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/veoreg/infinity-studio/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	return s
}

func TestActiveSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.LoadActive(); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}

	started := time.Now().Add(-30 * time.Second).Truncate(time.Millisecond)
	want := &domain.ActiveSession{
		JobID:     "G1",
		Kind:      domain.JobKindVideo,
		ImageURL:  "https://x/in.png",
		Prompt:    "a glittering city",
		StartedAt: started,
	}
	if err := s.SaveActive(want); err != nil {
		t.Fatalf("SaveActive() error: %v", err)
	}

	got, err := s.LoadActive()
	if err != nil {
		t.Fatalf("LoadActive() error: %v", err)
	}
	if got.JobID != "G1" || got.Kind != domain.JobKindVideo || got.Prompt != want.Prompt {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	// StartedAt must survive so resumed progress reflects real elapsed time.
	if !got.StartedAt.Equal(started) {
		t.Fatalf("StartedAt = %v, want %v", got.StartedAt, started)
	}

	if err := s.ClearActive(); err != nil {
		t.Fatalf("ClearActive() error: %v", err)
	}
	if _, err := s.LoadActive(); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected cleared session, got %v", err)
	}
	// Clearing twice stays a no-op.
	if err := s.ClearActive(); err != nil {
		t.Fatalf("second ClearActive() error: %v", err)
	}
}

func TestCorruptActiveSessionDropped(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, activeFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadActive(); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("corrupt tuple should read as absent, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, activeFile)); !os.IsNotExist(err) {
		t.Fatal("corrupt tuple should have been removed")
	}
}

func TestGuestIDStable(t *testing.T) {
	s := newTestStore(t)
	first, err := s.GuestID()
	if err != nil {
		t.Fatalf("GuestID() error: %v", err)
	}
	if first == "" {
		t.Fatal("empty guest id")
	}
	second, err := s.GuestID()
	if err != nil {
		t.Fatalf("GuestID() second call error: %v", err)
	}
	if first != second {
		t.Fatalf("guest id changed across calls: %q vs %q", first, second)
	}
}

func TestDeletedDefaults(t *testing.T) {
	s := newTestStore(t)
	if err := s.MarkDefaultDeleted("asset-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkDefaultDeleted("asset-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkDefaultDeleted("asset-2"); err != nil {
		t.Fatal(err)
	}
	ids, err := s.DeletedDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "asset-1" || ids[1] != "asset-2" {
		t.Fatalf("DeletedDefaults() = %v", ids)
	}
}
