package playback

import (
	"image"
	"time"

	"github.com/llehouerou/reel/internal/player"
)

// Service defines the playback engine contract consumed by the
// presentation layer. All methods are expected to be called from the
// consumer's single controlling goroutine; Poll once per redraw/update.
type Service interface {
	// Transport
	SetPaused(paused bool) error
	SetLooping(looping bool)
	SetSpeed(rate float64) error
	Seek(pos player.Position, accurate bool) error
	RestartStream() error
	SetMuted(muted bool)
	SetVolume(volume float64)

	// State queries
	Size() (width, height int)
	Framerate() float64
	Duration() time.Duration
	Position() time.Duration
	Paused() bool
	Looping() bool
	EOS() bool
	Speed() float64
	Muted() bool

	// LatestFrame returns the most recently decoded frame and whether it
	// is new since the last retrieval.
	LatestFrame() (*player.Frame, bool)

	// SubtitleText returns the active subtitle cue, or ok=false.
	SubtitleText() (text string, ok bool)

	// SetSubtitleURI switches to an external subtitle stream.
	SetSubtitleURI(uri string) error

	// SetSubtitlesEnabled toggles subtitle rendering.
	SetSubtitlesEnabled(enabled bool)

	// Poll runs one tick of the state machine: restart handling, bus
	// drain, frame/subtitle notifications. Call once per redraw.
	Poll()

	// Thumbnails extracts display-ready images at the given positions.
	// Blocking and slow; setup-time use only.
	Thumbnails(positions []player.Position, downscale uint) ([]image.Image, error)

	// Subscribe creates a new event subscription.
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}
