// Package gst implements the playback backend on a GStreamer playbin
// pipeline with an NV12 appsink tap for decoded video frames.
package gst

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	gstreamer "github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/llehouerou/reel/internal/player"
	"github.com/llehouerou/reel/internal/subtitle"
)

// playbin flag bits, from the GstPlayFlags enum.
const (
	flagVideo      = 0x0001
	flagAudio      = 0x0002
	flagText       = 0x0004
	flagSoftVolume = 0x0010
)

const (
	// sampleQueueSize bounds decoded frames buffered between the appsink
	// callback and the pull side. Small on purpose: stale frames are
	// worthless, the newest one wins.
	sampleQueueSize = 4

	capsProbeTimeout  = 10 * time.Second
	capsProbeInterval = 20 * time.Millisecond
)

// Backend drives one playbin instance. All transport calls come from the
// session's controlling goroutine; the appsink callback is the only
// GStreamer-owned thread touching the sample queue.
type Backend struct {
	// id tags every log line from this pipeline, so interleaved output
	// from overlapping sessions stays attributable.
	id string

	pipeline *gstreamer.Element
	sink     *app.Sink
	bus      *gstreamer.Bus

	samples chan *player.Sample

	// capsMu guards the negotiated stream info: the appsink streaming
	// thread reads it inside the sample callbacks while the caps probe
	// writes it on the session goroutine.
	capsMu    sync.RWMutex
	framerate float64
	height    int

	subsEnabled bool
}

var _ player.Backend = (*Backend)(nil)

// Options tunes backend construction.
type Options struct {
	// SubtitleURI, when set, is loaded as an external subtitle stream.
	SubtitleURI string

	// SubtitlesEnabled turns playbin's text rendering on.
	SubtitlesEnabled bool
}

// New builds a playbin pipeline for the URI and brings it to the paused
// state so caps negotiate and the first frame prerolls.
func New(uri string, opts Options) (*Backend, error) {
	gstreamer.Init(nil)

	pipeline, err := gstreamer.NewElement("playbin")
	if err != nil {
		return nil, fmt.Errorf("failed to create playbin: %w", err)
	}

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	caps := gstreamer.NewCapsFromString(
		"video/x-raw,format=NV12,pixel-aspect-ratio=1/1")
	sink.SetProperty("caps", caps)
	sink.SetProperty("max-buffers", sampleQueueSize)
	sink.SetProperty("drop", true)

	pipeline.SetProperty("uri", uri)
	pipeline.SetProperty("video-sink", sink.Element)

	b := &Backend{
		id:       uuid.New().String(),
		pipeline: pipeline,
		sink:     sink,
		samples:  make(chan *player.Sample, sampleQueueSize),
	}

	b.subsEnabled = opts.SubtitlesEnabled
	pipeline.SetProperty("flags", b.playFlags())
	if opts.SubtitleURI != "" {
		pipeline.SetProperty("suburi", opts.SubtitleURI)
	}

	b.installCallbacks()
	b.bus = pipeline.GetBus()

	// Paused is enough to negotiate caps and preroll the first frame.
	if err := pipeline.SetState(gstreamer.StatePaused); err != nil {
		pipeline.SetState(gstreamer.StateNull)
		return nil, fmt.Errorf("failed to pause pipeline: %w", err)
	}

	slog.Debug("pipeline created", "uri", uri, "pipeline", b.id)
	return b, nil
}

func (b *Backend) playFlags() int {
	flags := flagVideo | flagAudio | flagSoftVolume
	if b.subsEnabled {
		flags |= flagText
	}
	return flags
}

// SetPlaying switches the pipeline between playing and paused.
func (b *Backend) SetPlaying(playing bool) error {
	state := gstreamer.StatePaused
	if playing {
		state = gstreamer.StatePlaying
	}
	if err := b.pipeline.SetState(state); err != nil {
		return fmt.Errorf("failed to set pipeline state: %w", err)
	}
	return nil
}

// SetVolume sets the linear playback volume.
func (b *Backend) SetVolume(volume float64) {
	b.pipeline.SetProperty("volume", volume)
}

// SetMuted mutes or unmutes audio.
func (b *Backend) SetMuted(muted bool) {
	b.pipeline.SetProperty("mute", muted)
}

// SetAVOffset shifts audio relative to video to compensate for measured
// presentation latency.
func (b *Backend) SetAVOffset(offset time.Duration) {
	b.pipeline.SetProperty("av-offset", int64(offset))
}

// SetSubtitleURI loads an external subtitle stream.
func (b *Backend) SetSubtitleURI(uri string) error {
	b.pipeline.SetProperty("suburi", uri)
	return nil
}

// SetSubtitlesEnabled toggles playbin's text rendering.
func (b *Backend) SetSubtitlesEnabled(enabled bool) {
	b.subsEnabled = enabled
	b.pipeline.SetProperty("flags", b.playFlags())
}

// PullSubtitle always returns nil: playbin composites its own subtitle
// stream onto the video, so no cue objects cross this boundary. Sidecar
// tracks are handled above the backend.
func (b *Backend) PullSubtitle() *subtitle.Cue { return nil }

// PollMessage pops pending bus messages, returning the first one that
// maps to a playback-level event. Returns nil when the bus is drained.
func (b *Backend) PollMessage() player.Message {
	for {
		msg := b.bus.TimedPop(time.Millisecond)
		if msg == nil {
			return nil
		}
		switch msg.Type() {
		case gstreamer.MessageEOS:
			return player.EOSMessage{}
		case gstreamer.MessageError:
			gerr := msg.ParseError()
			slog.Error("pipeline error",
				"pipeline", b.id,
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			return player.ErrorMessage{Err: fmt.Errorf("pipeline error: %s", gerr.Error())}
		}
	}
}

// Close tears the pipeline down. Safe to call more than once.
func (b *Backend) Close() error {
	if err := b.pipeline.SetState(gstreamer.StateNull); err != nil {
		return fmt.Errorf("failed to stop pipeline: %w", err)
	}
	return nil
}
