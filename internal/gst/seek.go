package gst

import (
	"fmt"
	"time"

	gstreamer "github.com/tinyzimmer/go-gst/gst"

	"github.com/llehouerou/reel/internal/player"
)

// Seek flushes the pipeline and moves the play head. Accurate seeks
// decode from the previous keyframe to land exactly; inaccurate ones
// snap to the nearest keyframe.
func (b *Backend) Seek(pos player.Position, accurate bool) error {
	flags := gstreamer.SeekFlagFlush
	if accurate {
		flags |= gstreamer.SeekFlagAccurate
	} else {
		flags |= gstreamer.SeekFlagKeyUnit
	}

	target := b.resolve(pos)
	ev := gstreamer.NewSeekEvent(
		1.0, gstreamer.FormatTime, flags,
		gstreamer.SeekTypeSet, int64(target),
		gstreamer.SeekTypeNone, 0,
	)
	if !b.pipeline.SendEvent(ev) {
		return fmt.Errorf("seek to %v rejected", pos)
	}
	return nil
}

// SeekRange issues a rate-adjusted seek over an explicit play range.
// Reverse rates swap the roles of start and stop.
func (b *Backend) SeekRange(rate float64, start, stop time.Duration) error {
	ev := gstreamer.NewSeekEvent(
		rate, gstreamer.FormatTime, gstreamer.SeekFlagFlush|gstreamer.SeekFlagAccurate,
		gstreamer.SeekTypeSet, int64(start),
		gstreamer.SeekTypeSet, int64(stop),
	)
	if !b.pipeline.SendEvent(ev) {
		return fmt.Errorf("rate seek (%v, [%v, %v]) rejected", rate, start, stop)
	}
	return nil
}

// resolve converts a frame-index position to stream time using the
// negotiated framerate.
func (b *Backend) resolve(pos player.Position) time.Duration {
	if !pos.IsFrame() {
		return pos.Time()
	}
	fps := b.negotiatedFramerate()
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(pos.Frame()) / fps * float64(time.Second))
}

// QueryPosition returns the current play head position.
func (b *Backend) QueryPosition() (time.Duration, error) {
	ok, pos := b.pipeline.QueryPosition(gstreamer.FormatTime)
	if !ok {
		return 0, fmt.Errorf("position query failed")
	}
	return time.Duration(pos), nil
}

// QueryDuration returns the media duration.
func (b *Backend) QueryDuration() (time.Duration, error) {
	ok, dur := b.pipeline.QueryDuration(gstreamer.FormatTime)
	if !ok {
		return 0, fmt.Errorf("duration query failed")
	}
	return time.Duration(dur), nil
}
