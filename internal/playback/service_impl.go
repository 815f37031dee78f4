// internal/playback/service_impl.go
package playback

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/llehouerou/reel/internal/player"
	"github.com/llehouerou/reel/internal/state"
)

// How often Poll pushes the play head into the resume store. The store
// debounces on top of this.
const resumeSaveInterval = 5 * time.Second

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	session *player.Session

	subs   []*Subscription
	subsMu sync.RWMutex

	// Resume persistence; nil disables it.
	resume   *state.Store
	uri      string
	lastSave time.Time

	mu     sync.Mutex
	closed bool
}

// New creates a playback service around an open session. When resume is
// non-nil the play head is restored from the store and persisted back
// periodically under the given URI.
func New(session *player.Session, resume *state.Store, uri string) Service {
	s := &serviceImpl{
		session: session,
		resume:  resume,
		uri:     uri,
	}

	if resume != nil && uri != "" {
		if pos, ok := resume.GetPosition(uri); ok {
			if err := session.Seek(player.AtTime(pos), true); err != nil {
				slog.Warn("resume seek failed", "uri", uri, "error", err)
			}
		}
	}

	return s
}

// Poll runs one tick of the transport state machine. Called by the
// consumer once per redraw/update cycle.
func (s *serviceImpl) Poll() {
	sess := s.session

	if sess.ConsumeRestartPending() {
		// Restart wins over any EOS-triggered pause this tick; running
		// the pause logic here would immediately re-pause the restarted
		// stream.
		if err := sess.RestartStream(); err != nil {
			slog.Error("cannot restart stream", "session", sess.ID(), "error", err)
			s.publishError(err)
		}
	} else if !sess.EOS() && !sess.Paused() {
		s.drainBus()
	}

	if sess.Store().Dirty() {
		sess.NoteFramePresented()
		s.publishFrame()
	}

	if sess.ConsumeCueChanged() {
		text, visible := sess.CurrentCue()
		s.publishSubtitle(SubtitleEvent{Text: text, Visible: visible})
	}

	s.maybeSavePosition()
}

// drainBus empties pending backend bus messages. Errors are surfaced to
// subscribers without terminating the session; EOS either queues a loop
// restart for the next tick or parks the session paused at EOS.
func (s *serviceImpl) drainBus() {
	sess := s.session
	restart := false
	eosPause := false

	for msg := sess.PollMessage(); msg != nil; msg = sess.PollMessage() {
		switch m := msg.(type) {
		case player.ErrorMessage:
			slog.Error("bus returned an error", "session", sess.ID(), "error", m.Err)
			s.publishError(m.Err)
		case player.EOSMessage:
			s.publishEOS()
			if sess.Looping() {
				restart = true
			} else {
				eosPause = true
			}
		}
	}

	if restart {
		sess.MarkRestartPending()
	} else if eosPause {
		if err := sess.MarkEOS(); err != nil {
			slog.Error("cannot pause at end of stream", "session", sess.ID(), "error", err)
		}
	}
}

func (s *serviceImpl) maybeSavePosition() {
	if s.resume == nil || s.uri == "" {
		return
	}
	now := time.Now()
	if now.Sub(s.lastSave) < resumeSaveInterval {
		return
	}
	s.lastSave = now
	s.resume.SavePosition(s.uri, s.session.Position(), s.session.Duration())
}

// Transport passthrough

func (s *serviceImpl) SetPaused(paused bool) error { return s.session.SetPaused(paused) }
func (s *serviceImpl) SetLooping(looping bool)     { s.session.SetLooping(looping) }
func (s *serviceImpl) SetSpeed(rate float64) error { return s.session.SetSpeed(rate) }
func (s *serviceImpl) RestartStream() error        { return s.session.RestartStream() }
func (s *serviceImpl) SetMuted(muted bool)         { s.session.SetMuted(muted) }
func (s *serviceImpl) SetVolume(volume float64)    { s.session.SetVolume(volume) }

func (s *serviceImpl) Seek(pos player.Position, accurate bool) error {
	return s.session.Seek(pos, accurate)
}

// State queries

func (s *serviceImpl) Size() (int, int)         { return s.session.Size() }
func (s *serviceImpl) Framerate() float64       { return s.session.Framerate() }
func (s *serviceImpl) Duration() time.Duration  { return s.session.Duration() }
func (s *serviceImpl) Position() time.Duration  { return s.session.Position() }
func (s *serviceImpl) Paused() bool             { return s.session.Paused() }
func (s *serviceImpl) Looping() bool            { return s.session.Looping() }
func (s *serviceImpl) EOS() bool                { return s.session.EOS() }
func (s *serviceImpl) Speed() float64           { return s.session.Speed() }
func (s *serviceImpl) Muted() bool              { return s.session.Muted() }

func (s *serviceImpl) LatestFrame() (*player.Frame, bool) {
	return s.session.Store().ReadAndClear()
}

func (s *serviceImpl) SubtitleText() (string, bool) {
	return s.session.CurrentCue()
}

func (s *serviceImpl) SetSubtitleURI(uri string) error {
	return s.session.SetSubtitleURI(uri)
}

func (s *serviceImpl) SetSubtitlesEnabled(enabled bool) {
	s.session.SetSubtitlesEnabled(enabled)
}

func (s *serviceImpl) Thumbnails(positions []player.Position, downscale uint) ([]image.Image, error) {
	return s.session.Thumbnails(positions, downscale)
}

// Subscribe creates a new event subscription.
func (s *serviceImpl) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

// Close persists the final position, shuts subscribers down and closes
// the session.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.resume != nil && s.uri != "" {
		s.resume.SavePosition(s.uri, s.session.Position(), s.session.Duration())
	}

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return s.session.Close()
}

func (s *serviceImpl) publishFrame() {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendFrame(FrameEvent{})
	}
}

func (s *serviceImpl) publishSubtitle(e SubtitleEvent) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendSubtitle(e)
	}
}

func (s *serviceImpl) publishEOS() {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendEOS(EndOfStreamEvent{})
	}
}

func (s *serviceImpl) publishError(err error) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendError(ErrorEvent{Err: err})
	}
}
