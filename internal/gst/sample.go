package gst

import (
	"log/slog"
	"time"

	gstreamer "github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/llehouerou/reel/internal/player"
)

// installCallbacks wires the appsink so decoded frames land in the
// sample queue. Both the preroll and streaming paths feed the same
// queue: a paused pipeline still surfaces its prerolled frame, which is
// what makes seeks visible while paused.
func (b *Backend) installCallbacks() {
	b.sink.SetCallbacks(&app.SinkCallbacks{
		NewPrerollFunc: func(sink *app.Sink) gstreamer.FlowReturn {
			return b.consume(sink.PullPreroll())
		},
		NewSampleFunc: func(sink *app.Sink) gstreamer.FlowReturn {
			return b.consume(sink.PullSample())
		},
	})
}

// consume copies one sample off the pipeline. A nil or unmappable sample
// skips the frame rather than terminating the stream.
func (b *Backend) consume(sample *gstreamer.Sample) gstreamer.FlowReturn {
	if sample == nil {
		slog.Warn("failed to pull sample from appsink, skipping frame", "pipeline", b.id)
		return gstreamer.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("failed to get buffer from sample, skipping frame", "pipeline", b.id)
		return gstreamer.FlowOK
	}

	mapInfo := buffer.Map(gstreamer.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("empty buffer received", "pipeline", b.id)
		return gstreamer.FlowOK
	}

	// Copy out: GStreamer reuses the buffer after Unmap.
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	width, height := b.sampleSize(sample)
	s := &player.Sample{
		Data:     frameData,
		Width:    width,
		Height:   height,
		Stride:   nv12Stride(len(frameData), height),
		PTS:      buffer.PresentationTimestamp(),
		Duration: buffer.Duration(),
	}

	select {
	case b.samples <- s:
	default:
		// Queue full: the consumer is behind, drop the frame.
		slog.Debug("dropping frame, sample queue full", "pipeline", b.id, "pts", s.PTS)
	}
	return gstreamer.FlowOK
}

// sampleSize reads the frame dimensions off the sample's own caps, which
// may differ from the negotiated caps mid-stream.
func (b *Backend) sampleSize(sample *gstreamer.Sample) (int, int) {
	caps := sample.GetCaps()
	if caps == nil || caps.GetSize() == 0 {
		return 0, b.negotiatedHeight()
	}
	st := caps.GetStructureAt(0)

	width, height := 0, 0
	if val, err := st.GetValue("width"); err == nil {
		if w, ok := val.(int); ok {
			width = w
		}
	}
	if val, err := st.GetValue("height"); err == nil {
		if h, ok := val.(int); ok {
			height = h
		}
	}
	if height == 0 {
		height = b.negotiatedHeight()
	}
	return width, height
}

// PullSample waits up to timeout for the next decoded frame.
func (b *Backend) PullSample(timeout time.Duration) (*player.Sample, error) {
	return b.pull(timeout)
}

// TryPreroll waits up to timeout for a prerolled frame while paused.
func (b *Backend) TryPreroll(timeout time.Duration) (*player.Sample, error) {
	return b.pull(timeout)
}

func (b *Backend) pull(timeout time.Duration) (*player.Sample, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s := <-b.samples:
		return s, nil
	case <-timer.C:
		return nil, player.ErrPullTimeout
	}
}
