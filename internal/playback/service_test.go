package playback

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/llehouerou/reel/internal/player"
	"github.com/llehouerou/reel/internal/state"
	"github.com/llehouerou/reel/internal/subtitle"
)

func openService(t *testing.T, m *player.MockBackend) Service {
	t.Helper()
	sess, err := player.Open(m, player.Options{
		PullTimeout:    5 * time.Millisecond,
		PrerollTimeout: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	svc := New(sess, nil, "")
	t.Cleanup(func() { svc.Close() })
	return svc
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

func TestPollEmitsFrameEvent(t *testing.T) {
	m := player.NewMockBackend()
	svc := openService(t, m)
	sub := svc.Subscribe()

	m.QueueSampleAt(0)
	waitFor(t, "decoded frame", func() bool {
		f, _ := peekFrame(svc)
		return f != nil
	})

	svc.Poll()

	select {
	case <-sub.FrameReady:
	default:
		t.Error("no FrameEvent after poll with a dirty store")
	}

	// The frame is still unconsumed until LatestFrame runs.
	f, fresh := svc.LatestFrame()
	if f == nil || !fresh {
		t.Errorf("LatestFrame = %v, %v; want frame, true", f, fresh)
	}
}

// peekFrame checks for a decoded frame without consuming the dirty flag.
func peekFrame(svc Service) (*player.Frame, bool) {
	s := svc.(*serviceImpl)
	return s.session.Store().Peek(), s.session.Store().Dirty()
}

func TestPollEmitsErrorEvent(t *testing.T) {
	m := player.NewMockBackend()
	svc := openService(t, m)
	sub := svc.Subscribe()

	streamErr := errors.New("decoder hiccup")
	m.QueueMessage(player.ErrorMessage{Err: streamErr})

	svc.Poll()

	select {
	case ev := <-sub.Error:
		if !errors.Is(ev.Err, streamErr) {
			t.Errorf("error event carries %v, want %v", ev.Err, streamErr)
		}
	default:
		t.Error("no ErrorEvent after bus error")
	}
	if svc.EOS() {
		t.Error("stream error marked EOS")
	}
}

func TestPollEOSWithoutLoopingPauses(t *testing.T) {
	m := player.NewMockBackend()
	svc := openService(t, m)
	sub := svc.Subscribe()

	m.QueueMessage(player.EOSMessage{})
	svc.Poll()

	select {
	case <-sub.EndOfStream:
	default:
		t.Error("no EndOfStreamEvent")
	}
	if !svc.EOS() || !svc.Paused() {
		t.Errorf("EOS=%v paused=%v, want true true", svc.EOS(), svc.Paused())
	}
	if m.Playing() {
		t.Error("backend still playing at EOS")
	}

	// The session stays parked across further polls.
	svc.Poll()
	if !svc.EOS() || !svc.Paused() {
		t.Error("EOS pause did not persist")
	}
}

func TestPollEOSWithLoopingRestartsNextTick(t *testing.T) {
	m := player.NewMockBackend()
	svc := openService(t, m)
	sub := svc.Subscribe()
	svc.SetLooping(true)

	m.QueueMessage(player.EOSMessage{})

	// Tick one: EOS observed, restart queued but not yet executed.
	svc.Poll()
	select {
	case <-sub.EndOfStream:
	default:
		t.Error("no EndOfStreamEvent on the EOS tick")
	}
	if svc.EOS() {
		t.Error("looping EOS parked the session instead of queueing a restart")
	}
	if len(m.Seeks()) != 0 {
		t.Error("restart seek issued on the EOS tick")
	}

	// Tick two: the restart runs.
	svc.Poll()
	seeks := m.Seeks()
	if len(seeks) != 1 || seeks[0].Pos.Time() != 0 {
		t.Fatalf("seeks after restart tick = %+v, want one seek to 0", seeks)
	}
	if svc.Paused() || !m.Playing() {
		t.Error("restarted session not playing")
	}
}

func TestPollUnpauseAfterEOSRestarts(t *testing.T) {
	m := player.NewMockBackend()
	svc := openService(t, m)

	m.QueueMessage(player.EOSMessage{})
	svc.Poll()
	if !svc.EOS() {
		t.Fatal("session not at EOS")
	}

	if err := svc.SetPaused(false); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	svc.Poll()

	seeks := m.Seeks()
	if len(seeks) != 1 || seeks[0].Pos.Time() != 0 {
		t.Fatalf("seeks = %+v, want one restart seek to 0", seeks)
	}
	if svc.EOS() || svc.Paused() {
		t.Error("restart did not clear EOS and resume")
	}
}

func TestPollEmitsSubtitleEvents(t *testing.T) {
	m := player.NewMockBackend()
	svc := openService(t, m)
	sub := svc.Subscribe()

	m.QueueSubtitle(&subtitle.Cue{Start: 0, End: time.Second, Text: "hello"})
	m.QueueSampleAt(100 * time.Millisecond)
	waitFor(t, "cue install", func() bool {
		_, ok := svc.SubtitleText()
		return ok
	})

	svc.Poll()
	select {
	case ev := <-sub.Subtitle:
		if !ev.Visible || ev.Text != "hello" {
			t.Errorf("subtitle event = %+v", ev)
		}
	default:
		t.Error("no SubtitleEvent after cue install")
	}
}

func TestSubscriptionDropsWhenFull(t *testing.T) {
	sub := newSubscription()

	// Flooding a subscriber that never drains must not block.
	for i := 0; i < eventBufferSize*3; i++ {
		sub.sendFrame(FrameEvent{})
	}
	if got := len(sub.frameCh); got != eventBufferSize {
		t.Errorf("buffered %d events, want %d", got, eventBufferSize)
	}
}

func TestResumeSeeksOnOpen(t *testing.T) {
	store, err := state.OpenPath(filepath.Join(t.TempDir(), "reel.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()

	const uri = "file:///movie.mp4"
	store.SavePosition(uri, 90*time.Second, time.Hour)
	waitFor(t, "flushed position", func() bool {
		_, ok := store.GetPosition(uri)
		return ok
	})

	m := player.NewMockBackend()
	sess, err := player.Open(m, player.Options{
		PullTimeout:    5 * time.Millisecond,
		PrerollTimeout: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	svc := New(sess, store, uri)
	defer svc.Close()

	seeks := m.Seeks()
	if len(seeks) != 1 {
		t.Fatalf("got %d seeks on open, want 1", len(seeks))
	}
	if seeks[0].Pos.Time() != 90*time.Second || !seeks[0].Accurate {
		t.Errorf("resume seek = %+v, want accurate seek to 90s", seeks[0])
	}
}

func TestCloseSignalsSubscribers(t *testing.T) {
	m := player.NewMockBackend()
	sess, err := player.Open(m, player.Options{
		PullTimeout:    5 * time.Millisecond,
		PrerollTimeout: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	svc := New(sess, nil, "")
	sub := svc.Subscribe()

	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-sub.Done:
	default:
		t.Error("Done not closed after service Close")
	}
	if !m.Closed() {
		t.Error("backend not closed")
	}

	// Idempotent.
	if err := svc.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
