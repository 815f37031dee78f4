package player

import (
	"errors"
	"testing"
	"time"

	"github.com/llehouerou/reel/internal/subtitle"
)

// fastOptions keeps the decode loop responsive in tests.
func fastOptions() Options {
	return Options{
		PullTimeout:    5 * time.Millisecond,
		PrerollTimeout: 5 * time.Millisecond,
	}
}

func openSession(t *testing.T, m *MockBackend, opts Options) *Session {
	t.Helper()
	s, err := Open(m, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestOpenCapsError(t *testing.T) {
	m := NewMockBackend()
	m.SetCapsError(errors.New("no caps"))

	_, err := Open(m, fastOptions())
	if !errors.Is(err, ErrCaps) {
		t.Errorf("got %v, want ErrCaps", err)
	}
	if !m.Closed() {
		t.Error("backend not closed after failed open")
	}
}

func TestOpenRejectsBadFramerate(t *testing.T) {
	for _, rate := range []float64{0, -25} {
		m := NewMockBackend()
		m.SetCaps(Caps{Width: 640, Height: 360, Framerate: rate})

		_, err := Open(m, fastOptions())
		if !errors.Is(err, ErrBadFramerate) {
			t.Errorf("framerate %v: got %v, want ErrBadFramerate", rate, err)
		}
		if !m.Closed() {
			t.Errorf("framerate %v: backend not closed", rate)
		}
	}
}

func TestOpenRejectsZeroSize(t *testing.T) {
	m := NewMockBackend()
	m.SetCaps(Caps{Width: 0, Height: 360, Framerate: 30})

	if _, err := Open(m, fastOptions()); !errors.Is(err, ErrCaps) {
		t.Errorf("got %v, want ErrCaps", err)
	}
}

func TestOpenStartPaused(t *testing.T) {
	m := NewMockBackend()
	opts := fastOptions()
	opts.StartPaused = true
	s := openSession(t, m, opts)

	if !s.Paused() {
		t.Error("session not paused")
	}
	if m.Playing() {
		t.Error("backend playing despite StartPaused")
	}
}

func TestSessionIDsUnique(t *testing.T) {
	a := openSession(t, NewMockBackend(), fastOptions())
	b := openSession(t, NewMockBackend(), fastOptions())
	if a.ID() == b.ID() {
		t.Errorf("two sessions share ID %d", a.ID())
	}
}

func TestSetPausedTogglesBackend(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	if err := s.SetPaused(true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	if !s.Paused() || m.Playing() {
		t.Error("pause did not reach the backend")
	}

	if err := s.SetPaused(false); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	if s.Paused() || !m.Playing() {
		t.Error("unpause did not reach the backend")
	}
}

func TestUnpauseAfterEOSSchedulesRestart(t *testing.T) {
	s := openSession(t, NewMockBackend(), fastOptions())

	if err := s.MarkEOS(); err != nil {
		t.Fatalf("MarkEOS: %v", err)
	}
	if !s.EOS() || !s.Paused() {
		t.Fatal("MarkEOS did not park the session paused at EOS")
	}

	if err := s.SetPaused(false); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	if !s.RestartPending() {
		t.Error("un-pausing at EOS did not schedule a restart")
	}
}

func TestRestartStream(t *testing.T) {
	m := NewMockBackend()
	m.SetPosition(9 * time.Second)
	s := openSession(t, m, fastOptions())

	if err := s.MarkEOS(); err != nil {
		t.Fatalf("MarkEOS: %v", err)
	}
	if err := s.RestartStream(); err != nil {
		t.Fatalf("RestartStream: %v", err)
	}

	if s.EOS() {
		t.Error("EOS flag survived restart")
	}
	if s.Paused() || !m.Playing() {
		t.Error("restart left the session paused")
	}
	seeks := m.Seeks()
	if len(seeks) != 1 {
		t.Fatalf("got %d seeks, want 1", len(seeks))
	}
	if seeks[0].Pos.Time() != 0 || seeks[0].Accurate {
		t.Errorf("restart seek = %+v, want inaccurate seek to 0", seeks[0])
	}
	// The EOS flag is cleared before un-pausing, so the un-pause rule
	// must not re-queue another restart.
	if s.RestartPending() {
		t.Error("restart left another restart pending")
	}
}

func TestConsumeRestartPending(t *testing.T) {
	s := openSession(t, NewMockBackend(), fastOptions())

	if s.ConsumeRestartPending() {
		t.Error("restart pending on a fresh session")
	}
	s.MarkRestartPending()
	if !s.ConsumeRestartPending() {
		t.Error("pending restart not consumed")
	}
	if s.ConsumeRestartPending() {
		t.Error("restart flag not cleared by consume")
	}
}

func TestSetSpeedForward(t *testing.T) {
	m := NewMockBackend()
	m.SetPosition(2 * time.Second)
	s := openSession(t, m, fastOptions())

	if err := s.SetSpeed(2.0); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if got := s.Speed(); got != 2.0 {
		t.Errorf("speed = %v, want 2", got)
	}

	rs := m.RangeSeeks()
	if len(rs) != 1 {
		t.Fatalf("got %d range seeks, want 1", len(rs))
	}
	want := RangeSeekCall{Rate: 2.0, Start: 2 * time.Second, Stop: 10 * time.Second}
	if rs[0] != want {
		t.Errorf("range seek = %+v, want %+v", rs[0], want)
	}
}

func TestSetSpeedReverse(t *testing.T) {
	m := NewMockBackend()
	m.SetPosition(4 * time.Second)
	s := openSession(t, m, fastOptions())

	if err := s.SetSpeed(-1.0); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}

	rs := m.RangeSeeks()
	if len(rs) != 1 {
		t.Fatalf("got %d range seeks, want 1", len(rs))
	}
	want := RangeSeekCall{Rate: -1.0, Start: 0, Stop: 4 * time.Second}
	if rs[0] != want {
		t.Errorf("range seek = %+v, want %+v", rs[0], want)
	}
}

func TestSetSpeedRejectsInvalidRates(t *testing.T) {
	s := openSession(t, NewMockBackend(), fastOptions())

	if err := s.SetSpeed(0); !errors.Is(err, ErrInvalidSpeed) {
		t.Errorf("rate 0: got %v, want ErrInvalidSpeed", err)
	}
	if got := s.Speed(); got != 1.0 {
		t.Errorf("speed changed to %v after rejected rate", got)
	}
}

func TestSetSpeedPositionUnavailable(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	m.SetPositionError(errors.New("pipeline busy"))
	if err := s.SetSpeed(2.0); !errors.Is(err, ErrPositionUnavailable) {
		t.Errorf("got %v, want ErrPositionUnavailable", err)
	}
	if len(m.RangeSeeks()) != 0 {
		t.Error("range seek issued despite unknown position")
	}
}

func TestSetSpeedSeekFailureKeepsOldRate(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	m.SetRangeSeekError(errors.New("not seekable"))
	if err := s.SetSpeed(2.0); err == nil {
		t.Fatal("SetSpeed succeeded despite seek failure")
	}
	if got := s.Speed(); got != 1.0 {
		t.Errorf("speed = %v after failed seek, want 1", got)
	}
}

func TestSeekClearsActiveCue(t *testing.T) {
	s := openSession(t, NewMockBackend(), fastOptions())

	s.cueMu.Lock()
	s.activeCue = &subtitle.Cue{Start: 0, End: time.Second, Text: "hello"}
	s.cueMu.Unlock()
	s.ConsumeCueChanged()

	if err := s.Seek(AtTime(5*time.Second), false); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, ok := s.CurrentCue(); ok {
		t.Error("cue survived the seek")
	}
	if !s.ConsumeCueChanged() {
		t.Error("cue clear not flagged as a change")
	}
}

func TestSeekResetsAVSync(t *testing.T) {
	s := openSession(t, NewMockBackend(), fastOptions())

	s.avsync.Observe(50 * time.Millisecond)
	if err := s.Seek(AtTime(time.Second), false); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := s.avsync.Average(); got != 0 {
		t.Errorf("latency estimate = %v after seek, want 0", got)
	}
}

func TestPositionFallsBackToZero(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	m.SetPositionError(errors.New("no position"))
	if got := s.Position(); got != 0 {
		t.Errorf("position = %v, want 0", got)
	}
}

func TestMutedRoundTrip(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	s.SetMuted(true)
	if !s.Muted() || !m.MutedState() {
		t.Error("mute did not stick")
	}
	s.SetMuted(false)
	if s.Muted() || m.MutedState() {
		t.Error("unmute did not stick")
	}
}

func TestSetSubtitleURIClearsActiveCue(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	s.cueMu.Lock()
	s.activeCue = &subtitle.Cue{Start: 0, End: time.Minute, Text: "stale"}
	s.cueMu.Unlock()

	if err := s.SetSubtitleURI("file:///tmp/other.srt"); err != nil {
		t.Fatalf("SetSubtitleURI: %v", err)
	}
	if m.SubtitleURI() != "file:///tmp/other.srt" {
		t.Errorf("backend uri = %q", m.SubtitleURI())
	}
	if _, ok := s.CurrentCue(); ok {
		t.Error("cue from previous track survived the switch")
	}
	if !s.ConsumeCueChanged() {
		t.Error("cue change not flagged")
	}
}

func TestSetSubtitlesEnabled(t *testing.T) {
	m := NewMockBackend()
	s := openSession(t, m, fastOptions())

	s.SetSubtitlesEnabled(true)
	if !m.SubtitlesOn() {
		t.Error("enable did not reach backend")
	}

	s.cueMu.Lock()
	s.activeCue = &subtitle.Cue{Start: 0, End: time.Minute, Text: "visible"}
	s.cueMu.Unlock()

	s.SetSubtitlesEnabled(false)
	if m.SubtitlesOn() {
		t.Error("disable did not reach backend")
	}
	if _, ok := s.CurrentCue(); ok {
		t.Error("cue still active after disabling subtitles")
	}
}

func TestCloseStopsWorkerAndBackend(t *testing.T) {
	m := NewMockBackend()
	s, err := Open(m, fastOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-s.workerDone:
	default:
		t.Error("worker still running after Close")
	}
	if !m.Closed() {
		t.Error("backend not closed")
	}

	// Idempotent.
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := s.SetPaused(true); !errors.Is(err, ErrClosed) {
		t.Errorf("SetPaused on closed session: got %v, want ErrClosed", err)
	}
}
