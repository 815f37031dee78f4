// internal/player/interface.go
package player

import (
	"time"

	"github.com/llehouerou/reel/internal/subtitle"
)

// Sample is a raw decoded video sample handed over by the backend. The
// buffer is owned by the caller once returned; backends must not reuse it.
type Sample struct {
	Data     []byte
	Width    int
	Height   int
	Stride   int
	PTS      time.Duration
	Duration time.Duration
}

// Caps describes the negotiated stream: fixed pixel format and resolution,
// framerate in frames per second, and total duration (zero for live or
// otherwise indeterminate sources).
type Caps struct {
	Width     int
	Height    int
	Framerate float64
	Duration  time.Duration
	Live      bool
}

// Message is a backend bus message drained by the per-tick poll.
type Message interface{ isMessage() }

// EOSMessage signals the backend will produce no further samples.
type EOSMessage struct{}

// ErrorMessage carries a backend-reported stream error. The session keeps
// running; the consumer decides whether to tear it down.
type ErrorMessage struct {
	Err error
}

func (EOSMessage) isMessage()   {}
func (ErrorMessage) isMessage() {}

// Backend is the media pipeline abstraction supplying decoded samples.
// Implementations: internal/gst for GStreamer, MockBackend for tests.
//
// Pulls are bounded: they return ErrPullTimeout when no sample arrived
// within the timeout and ErrEndOfStream past the last sample. Both are
// transient from the worker's point of view.
type Backend interface {
	// SetPlaying switches the pipeline between playing and paused.
	SetPlaying(playing bool) error

	// PullSample retrieves the next decoded sample while playing.
	PullSample(timeout time.Duration) (*Sample, error)

	// TryPreroll retrieves the preroll sample while paused, so the first
	// frame after a seek materializes without resuming playback.
	TryPreroll(timeout time.Duration) (*Sample, error)

	// PullSubtitle non-blockingly retrieves a pending subtitle cue, or
	// nil when none is queued.
	PullSubtitle() *subtitle.Cue

	// Seek flushes buffered state and moves the play head. Accurate
	// trades latency for exactness; otherwise the backend may snap to
	// the nearest keyframe.
	Seek(pos Position, accurate bool) error

	// SeekRange performs a rate-adjusted seek over [start, stop]. A
	// negative rate plays the range in reverse.
	SeekRange(rate float64, start, stop time.Duration) error

	QueryPosition() (time.Duration, error)
	QueryDuration() (time.Duration, error)

	// PollMessage pops one pending bus message, or nil if none.
	PollMessage() Message

	SetVolume(volume float64)
	SetMuted(muted bool)

	// SetAVOffset applies a corrective delay to the audio pipeline to
	// compensate for measured video presentation latency.
	SetAVOffset(offset time.Duration)

	// SetSubtitleURI points the pipeline at an external subtitle stream.
	SetSubtitleURI(uri string) error
	SetSubtitlesEnabled(enabled bool)

	// Caps returns the negotiated stream capabilities.
	Caps() (Caps, error)

	// Close tears the pipeline down. Must only be called after the
	// decode worker has been joined.
	Close() error
}
