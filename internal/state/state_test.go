package state

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(filepath.Join(t.TempDir(), "reel.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitSaved(t *testing.T, s *Store, uri string) time.Duration {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if pos, ok := s.GetPosition(uri); ok {
			return pos
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("position for %s never saved", uri)
	return 0
}

func TestSaveAndGetPosition(t *testing.T) {
	s := openTestStore(t)

	s.SavePosition("file:///movie.mp4", 42*time.Second, 2*time.Hour)

	if pos := waitSaved(t, s, "file:///movie.mp4"); pos != 42*time.Second {
		t.Errorf("saved position = %v, want 42s", pos)
	}
	if _, ok := s.GetPosition("file:///other.mp4"); ok {
		t.Error("got position for a URI never saved")
	}
}

func TestSaveDebounceKeepsLatest(t *testing.T) {
	s := openTestStore(t)

	// Rapid-fire saves: only the last position should land.
	for i := 1; i <= 5; i++ {
		s.SavePosition("u", time.Duration(i)*time.Second, time.Hour)
	}
	if pos := waitSaved(t, s, "u"); pos != 5*time.Second {
		t.Errorf("saved position = %v, want 5s", pos)
	}
}

func TestNearEndClearsPosition(t *testing.T) {
	s := openTestStore(t)

	s.SavePosition("u", 30*time.Second, time.Hour)
	waitSaved(t, s, "u")

	// Within endSlack of the duration: the entry is dropped so the video
	// restarts from the top next time.
	s.SavePosition("u", time.Hour-2*time.Second, time.Hour)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.GetPosition("u"); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("near-end position not cleared")
}

func TestZeroPositionClearsEntry(t *testing.T) {
	s := openTestStore(t)

	s.SavePosition("u", 30*time.Second, time.Hour)
	waitSaved(t, s, "u")

	s.SavePosition("u", 0, time.Hour)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.GetPosition("u"); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("zero position not cleared")
}

func TestCloseFlushesPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reel.db")
	s, err := OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}

	s.SavePosition("u", 17*time.Second, time.Hour)
	// Close before the debounce timer fires; the pending save must land.
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	pos, ok := s2.GetPosition("u")
	if !ok || pos != 17*time.Second {
		t.Errorf("after flush: pos=%v ok=%v, want 17s true", pos, ok)
	}
}

func TestForget(t *testing.T) {
	s := openTestStore(t)

	s.SavePosition("u", 30*time.Second, time.Hour)
	waitSaved(t, s, "u")

	if err := s.Forget("u"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, ok := s.GetPosition("u"); ok {
		t.Error("position survived Forget")
	}
}
