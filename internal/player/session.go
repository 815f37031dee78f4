package player

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/llehouerou/reel/internal/subtitle"
)

// Session IDs correlate a session with externally owned resources (e.g.
// GPU textures). Process-wide monotonic counter, no other global state.
var nextSessionID atomic.Uint64

// Options tunes a session. Zero values take defaults.
type Options struct {
	// StartPaused opens the session without starting playback.
	StartPaused bool

	// PullTimeout bounds each streaming sample pull; PrerollTimeout
	// bounds preroll pulls while paused. Both transient on expiry.
	PullTimeout    time.Duration
	PrerollTimeout time.Duration

	// ThumbnailTimeout bounds the per-position frame wait in Thumbnails.
	ThumbnailTimeout time.Duration

	// AVSyncInterval is the number of latency samples between AV-offset
	// write-backs.
	AVSyncInterval int

	// Sidecar, when set, supplies subtitle cues from a sidecar track
	// instead of the backend's subtitle stream.
	Sidecar *subtitle.Track
}

func (o Options) withDefaults() Options {
	if o.PullTimeout <= 0 {
		o.PullTimeout = 100 * time.Millisecond
	}
	if o.PrerollTimeout <= 0 {
		o.PrerollTimeout = 50 * time.Millisecond
	}
	if o.ThumbnailTimeout <= 0 {
		o.ThumbnailTimeout = 5 * time.Second
	}
	if o.AVSyncInterval <= 0 {
		o.AVSyncInterval = avSyncInterval
	}
	return o
}

// Session is one open video: a backend pipeline, the frame store its
// decode worker fills, and the transport state machine. Transport calls
// are expected from a single controlling goroutine; only the frame store
// and a few atomic flags are shared with the worker.
type Session struct {
	id      uint64
	backend Backend
	store   *Store
	opts    Options
	avsync  *avSync

	width     int
	height    int
	framerate float64
	duration  time.Duration
	live      bool

	// Shared with the decode worker.
	alive      atomic.Bool
	paused     atomic.Bool
	workerDone chan struct{}

	mu             sync.RWMutex
	looping        bool
	speed          float64
	muted          bool
	isEOS          bool
	restartPending bool
	closed         bool

	cueMu      sync.Mutex
	activeCue  *subtitle.Cue
	cueChanged bool
	sidecar    *subtitle.Track
}

// Open negotiates stream capabilities, allocates the frame store and
// spawns the decode worker. The backend must already have reached its
// playing state so caps are readable; on any construction error the
// backend is torn down before returning.
func Open(backend Backend, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	caps, err := backend.Caps()
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("%w: %v", ErrCaps, err)
	}
	if caps.Width <= 0 || caps.Height <= 0 {
		backend.Close()
		return nil, fmt.Errorf("%w: %dx%d", ErrCaps, caps.Width, caps.Height)
	}
	if caps.Framerate <= 0 || math.IsNaN(caps.Framerate) || math.IsInf(caps.Framerate, 0) {
		backend.Close()
		return nil, fmt.Errorf("%w: %f", ErrBadFramerate, caps.Framerate)
	}

	s := &Session{
		id:         nextSessionID.Add(1),
		backend:    backend,
		store:      NewStore(),
		opts:       opts,
		width:      caps.Width,
		height:     caps.Height,
		framerate:  caps.Framerate,
		duration:   caps.Duration,
		live:       caps.Live,
		workerDone: make(chan struct{}),
		speed:      1.0,
		sidecar:    opts.Sidecar,
	}
	s.avsync = newAVSync(opts.AVSyncInterval, backend.SetAVOffset)
	s.alive.Store(true)
	s.paused.Store(opts.StartPaused)

	if err := backend.SetPlaying(!opts.StartPaused); err != nil {
		backend.Close()
		return nil, err
	}

	go s.runWorker()

	slog.Info("session opened",
		"session", s.id,
		"size", fmt.Sprintf("%dx%d", caps.Width, caps.Height),
		"framerate", caps.Framerate,
		"duration", caps.Duration,
		"live", caps.Live,
	)
	return s, nil
}

// ID returns the process-unique session identifier.
func (s *Session) ID() uint64 { return s.id }

// Store exposes the frame store for the presentation consumer.
func (s *Session) Store() *Store { return s.store }

// Size returns the negotiated resolution as (width, height).
func (s *Session) Size() (int, int) { return s.width, s.height }

// Framerate returns the stream framerate in frames per second.
func (s *Session) Framerate() float64 { return s.framerate }

// Duration returns the media duration. Zero for live sources.
func (s *Session) Duration() time.Duration { return s.duration }

// Live reports whether the source is live.
func (s *Session) Live() bool { return s.live }

// Position returns the current playback position, or zero when the
// backend cannot answer.
func (s *Session) Position() time.Duration {
	pos, err := s.backend.QueryPosition()
	if err != nil {
		return 0
	}
	return pos
}

// Paused reports whether playback is paused.
func (s *Session) Paused() bool { return s.paused.Load() }

// SetPaused transitions the backend between playing and paused. When the
// stream already hit EOS and the caller un-pauses, a restart is scheduled
// instead: resuming past EOS is undefined for most backends.
func (s *Session) SetPaused(paused bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.isEOS && !paused {
		s.restartPending = true
	}
	s.mu.Unlock()

	if err := s.backend.SetPlaying(!paused); err != nil {
		return err
	}
	s.paused.Store(paused)
	return nil
}

// Looping reports whether the media restarts at EOS.
func (s *Session) Looping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.looping
}

// SetLooping sets whether the media restarts at EOS.
func (s *Session) SetLooping(looping bool) {
	s.mu.Lock()
	s.looping = looping
	s.mu.Unlock()
}

// Muted reports whether audio is muted.
func (s *Session) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted
}

// SetMuted mutes or unmutes audio without changing the volume.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
	s.backend.SetMuted(muted)
}

// SetVolume sets the linear volume multiplier (0.0 silent, 1.0 full).
func (s *Session) SetVolume(volume float64) {
	s.backend.SetVolume(volume)
}

// SetSubtitleURI points the backend at an external subtitle stream.
// The previously active cue is cleared so stale text never outlives a
// track switch.
func (s *Session) SetSubtitleURI(uri string) error {
	if err := s.backend.SetSubtitleURI(uri); err != nil {
		return err
	}
	s.clearCue()
	return nil
}

// SetSubtitlesEnabled toggles subtitle rendering in the backend.
func (s *Session) SetSubtitlesEnabled(enabled bool) {
	s.backend.SetSubtitlesEnabled(enabled)
	if !enabled {
		s.clearCue()
	}
}

// EOS reports whether the stream has ended.
func (s *Session) EOS() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isEOS
}

// Speed returns the current playback rate.
func (s *Session) Speed() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speed
}

// SetSpeed changes the playback rate. Negative rates reverse playback.
// The backend needs symmetric start/stop bounds for a rate-adjusted seek,
// so the play range is set explicitly: current position to end going
// forward, zero to current position going backward. Fails with
// ErrPositionUnavailable when the current position cannot be queried.
func (s *Session) SetSpeed(rate float64) error {
	if rate == 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: %f", ErrInvalidSpeed, rate)
	}

	pos, err := s.backend.QueryPosition()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	var start, stop time.Duration
	if rate > 0 {
		start, stop = pos, s.duration
	} else {
		start, stop = 0, pos
	}
	if err := s.backend.SeekRange(rate, start, stop); err != nil {
		return err
	}

	s.mu.Lock()
	s.speed = rate
	s.mu.Unlock()
	return nil
}

// Seek flushes buffered backend state and moves the play head. With
// accurate set the backend lands exactly on the position at the cost of
// latency; otherwise it may snap to the nearest keyframe. Any active
// subtitle cue is cleared since its timing window no longer corresponds
// to content at the old position.
func (s *Session) Seek(pos Position, accurate bool) error {
	if err := s.backend.Seek(pos, accurate); err != nil {
		return err
	}
	s.clearCue()
	s.avsync.Reset()
	return nil
}

// RestartStream seeks to the first frame, unpauses and clears EOS.
func (s *Session) RestartStream() error {
	s.mu.Lock()
	s.isEOS = false
	s.mu.Unlock()

	if err := s.SetPaused(false); err != nil {
		return err
	}
	return s.Seek(AtTime(0), false)
}

// RestartPending reports whether an EOS-to-restart transition is queued.
func (s *Session) RestartPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restartPending
}

// MarkRestartPending queues an EOS-to-restart transition for the next
// poll tick.
func (s *Session) MarkRestartPending() {
	s.mu.Lock()
	s.restartPending = true
	s.mu.Unlock()
}

// ConsumeRestartPending clears the pending-restart flag, reporting
// whether it was set. Clearing before the restart avoids piling up
// multiple seeks.
func (s *Session) ConsumeRestartPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.restartPending
	s.restartPending = false
	return was
}

// MarkEOS records end of stream and pauses playback.
func (s *Session) MarkEOS() error {
	s.mu.Lock()
	s.isEOS = true
	s.mu.Unlock()
	return s.SetPaused(true)
}

// PollMessage pops one pending backend bus message, or nil.
func (s *Session) PollMessage() Message {
	return s.backend.PollMessage()
}

// NoteFramePresented feeds the AV sync estimator with the latency of the
// frame currently in the store, measured against now. Called by the
// consumer once per presented frame.
func (s *Session) NoteFramePresented() {
	arrival := s.store.Arrival()
	if arrival.IsZero() {
		return
	}
	s.avsync.Observe(time.Since(arrival))
}

// CurrentCue returns the active subtitle text, or ok=false when no cue
// is showing.
func (s *Session) CurrentCue() (text string, ok bool) {
	s.cueMu.Lock()
	defer s.cueMu.Unlock()
	if s.activeCue == nil {
		return "", false
	}
	return s.activeCue.Text, true
}

// ConsumeCueChanged reports whether the active cue changed since the
// last call, clearing the flag.
func (s *Session) ConsumeCueChanged() bool {
	s.cueMu.Lock()
	defer s.cueMu.Unlock()
	was := s.cueChanged
	s.cueChanged = false
	return was
}

func (s *Session) clearCue() {
	s.cueMu.Lock()
	if s.activeCue != nil {
		s.activeCue = nil
		s.cueChanged = true
	}
	s.cueMu.Unlock()
}

// Close stops the decode worker, joins it, then tears the backend down.
// The ordering is mandatory: destroying the pipeline while the worker
// still pulls from it is a safety violation. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.alive.Store(false)
	<-s.workerDone

	err := s.backend.Close()
	slog.Info("session closed", "session", s.id)
	return err
}
