package player

import (
	"fmt"
	"time"
)

// Position is a point in the media, expressed either as a time offset or
// as an nth-frame index. Frame positions are more exact for stepping but
// not every backend can seek by frame; the backend converts at the
// boundary.
type Position struct {
	time    time.Duration
	frame   uint64
	byFrame bool
}

// AtTime returns a time-based position.
func AtTime(t time.Duration) Position {
	return Position{time: t}
}

// AtFrame returns a frame-index position.
func AtFrame(n uint64) Position {
	return Position{frame: n, byFrame: true}
}

// IsFrame reports whether the position is frame-based.
func (p Position) IsFrame() bool { return p.byFrame }

// Time returns the time offset. Zero for frame-based positions.
func (p Position) Time() time.Duration { return p.time }

// Frame returns the frame index. Zero for time-based positions.
func (p Position) Frame() uint64 { return p.frame }

// String returns the position name.
func (p Position) String() string {
	if p.byFrame {
		return fmt.Sprintf("frame %d", p.frame)
	}
	return p.time.String()
}
