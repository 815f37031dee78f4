package player

import (
	"testing"
	"time"

	"github.com/llehouerou/reel/internal/subtitle"
)

func TestWorkerDeliversFrames(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	m.QueueSampleAt(0)
	m.QueueSampleAt(33 * time.Millisecond)

	waitFor(t, "two frames", func() bool { return s.Store().Generation() >= 2 })

	f, fresh := s.Store().ReadAndClear()
	if !fresh {
		t.Fatal("store not dirty after decode")
	}
	if f.PTS != 33*time.Millisecond {
		t.Errorf("latest frame PTS = %v, want 33ms", f.PTS)
	}
	if f.Width != 640 || f.Height != 360 {
		t.Errorf("frame size = %dx%d, want 640x360", f.Width, f.Height)
	}
}

func TestWorkerDeliversWhilePaused(t *testing.T) {
	m := NewMockBackend()
	opts := fastOptions()
	opts.StartPaused = true
	s := openSession(t, m, opts)

	// Preroll pulls must still surface frames, so a paused seek shows
	// its target frame.
	m.QueueSampleAt(time.Second)
	waitFor(t, "preroll frame", func() bool { return s.Store().Generation() >= 1 })
}

func TestWorkerDefaultsStrideToWidth(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	m.QueueSample(&Sample{
		Data:   make([]byte, 4*2*3/2),
		Width:  4,
		Height: 2,
	})
	waitFor(t, "frame", func() bool { return s.Store().Generation() >= 1 })

	if f := s.Store().Peek(); f.Stride != 4 {
		t.Errorf("stride = %d, want width 4", f.Stride)
	}
}

func TestWorkerSurvivesPullTimeouts(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	// Let several pull timeouts elapse, then confirm the worker is still
	// consuming.
	time.Sleep(30 * time.Millisecond)
	m.QueueSampleAt(0)
	waitFor(t, "frame after timeouts", func() bool { return s.Store().Generation() >= 1 })
}

func TestWorkerInstallsOverlappingCue(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	m.QueueSubtitle(&subtitle.Cue{Start: 0, End: time.Second, Text: "hello"})
	m.QueueSampleAt(100 * time.Millisecond)

	waitFor(t, "cue install", func() bool {
		_, ok := s.CurrentCue()
		return ok
	})
	if text, _ := s.CurrentCue(); text != "hello" {
		t.Errorf("cue text = %q, want hello", text)
	}
	if !s.ConsumeCueChanged() {
		t.Error("cue install not flagged as a change")
	}
}

func TestWorkerExpiresCue(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	m.QueueSubtitle(&subtitle.Cue{Start: 0, End: time.Second, Text: "hello"})
	m.QueueSampleAt(100 * time.Millisecond)
	waitFor(t, "cue install", func() bool {
		_, ok := s.CurrentCue()
		return ok
	})
	s.ConsumeCueChanged()

	// A frame past the cue's end clears it.
	m.QueueSampleAt(2 * time.Second)
	waitFor(t, "cue expiry", func() bool {
		_, ok := s.CurrentCue()
		return !ok
	})
	if !s.ConsumeCueChanged() {
		t.Error("cue expiry not flagged as a change")
	}
}

func TestWorkerIgnoresNonOverlappingCue(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	m.QueueSubtitle(&subtitle.Cue{Start: 5 * time.Second, End: 6 * time.Second, Text: "later"})
	m.QueueSampleAt(100 * time.Millisecond)

	waitFor(t, "frame", func() bool { return s.Store().Generation() >= 1 })
	if _, ok := s.CurrentCue(); ok {
		t.Error("future cue installed against a frame outside its window")
	}
}

func TestWorkerSidecarCues(t *testing.T) {
	track := &subtitle.Track{Cues: []subtitle.Cue{
		{Start: 0, End: time.Second, Text: "first"},
		{Start: 2 * time.Second, End: 3 * time.Second, Text: "second"},
	}}

	m := NewMockBackend()
	opts := fastOptions()
	opts.Sidecar = track
	s := openSession(t, m, opts)

	m.QueueSampleAt(500 * time.Millisecond)
	waitFor(t, "first cue", func() bool {
		text, ok := s.CurrentCue()
		return ok && text == "first"
	})

	m.QueueSampleAt(1500 * time.Millisecond)
	waitFor(t, "gap clears cue", func() bool {
		_, ok := s.CurrentCue()
		return !ok
	})

	m.QueueSampleAt(2500 * time.Millisecond)
	waitFor(t, "second cue", func() bool {
		text, ok := s.CurrentCue()
		return ok && text == "second"
	})
}

func TestNoteFramePresentedFeedsEstimator(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	// No frame yet: no sample recorded.
	s.NoteFramePresented()
	if got := s.avsync.Average(); got != 0 {
		t.Errorf("latency recorded with empty store: %v", got)
	}

	m.QueueSampleAt(0)
	waitFor(t, "frame", func() bool { return s.Store().Generation() >= 1 })

	s.NoteFramePresented()
	if got := s.avsync.Average(); got <= 0 {
		t.Errorf("latency estimate = %v, want > 0", got)
	}
}
