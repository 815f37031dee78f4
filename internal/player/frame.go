package player

import "time"

// Frame is one decoded video sample in NV12 layout: a full-resolution luma
// plane followed by a half-height interleaved chroma plane. Stride is the
// number of bytes per row and may exceed Width due to memory alignment.
//
// A Frame is immutable once installed in the Store; the decode worker
// always allocates a fresh buffer instead of reusing the stored one.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Stride int

	// PTS is the presentation timestamp of the frame; Duration is the
	// display window, so the frame covers [PTS, PTS+Duration).
	PTS      time.Duration
	Duration time.Duration
}

// Window returns the time interval the frame is on screen.
func (f *Frame) Window() (start, end time.Duration) {
	return f.PTS, f.PTS + f.Duration
}
