package gst

import (
	"fmt"
	"time"

	"github.com/llehouerou/reel/internal/player"
)

// Caps reads the negotiated stream capabilities off the appsink's sink
// pad, polling until the pipeline finishes prerolling. Live sources
// report a zero duration.
func (b *Backend) Caps() (player.Caps, error) {
	deadline := time.Now().Add(capsProbeTimeout)
	for {
		caps, ok := b.probeCaps()
		if ok {
			b.capsMu.Lock()
			b.framerate = caps.Framerate
			b.height = caps.Height
			b.capsMu.Unlock()
			return caps, nil
		}
		if time.Now().After(deadline) {
			return player.Caps{}, fmt.Errorf("caps not negotiated after %v", capsProbeTimeout)
		}
		time.Sleep(capsProbeInterval)
	}
}

func (b *Backend) probeCaps() (player.Caps, bool) {
	pad := b.sink.Element.GetStaticPad("sink")
	if pad == nil {
		return player.Caps{}, false
	}
	caps := pad.GetCurrentCaps()
	if caps == nil || caps.GetSize() == 0 {
		return player.Caps{}, false
	}
	st := caps.GetStructureAt(0)

	out := player.Caps{}
	if val, err := st.GetValue("width"); err == nil {
		if w, ok := val.(int); ok {
			out.Width = w
		}
	}
	if val, err := st.GetValue("height"); err == nil {
		if h, ok := val.(int); ok {
			out.Height = h
		}
	}
	if val, err := st.GetValue("framerate"); err == nil {
		// Framerate is a Gst.Fraction; go through its string form.
		out.Framerate = parseFramerate(fmt.Sprintf("%v", val))
	}
	if out.Width == 0 || out.Height == 0 {
		return player.Caps{}, false
	}

	if dur, err := b.QueryDuration(); err == nil && dur > 0 {
		out.Duration = dur
	} else {
		// No queryable duration means a live source.
		out.Live = true
	}
	return out, true
}

func (b *Backend) negotiatedHeight() int {
	b.capsMu.RLock()
	defer b.capsMu.RUnlock()
	return b.height
}

func (b *Backend) negotiatedFramerate() float64 {
	b.capsMu.RLock()
	defer b.capsMu.RUnlock()
	return b.framerate
}

// parseFramerate converts a framerate fraction string to frames per
// second. Examples: "30/1" -> 30, "30000/1001" -> 29.97.
func parseFramerate(s string) float64 {
	var numerator, denominator int
	if _, err := fmt.Sscanf(s, "%d/%d", &numerator, &denominator); err == nil {
		if denominator > 0 {
			return float64(numerator) / float64(denominator)
		}
		return 0
	}

	var fps float64
	if _, err := fmt.Sscanf(s, "%g", &fps); err == nil {
		return fps
	}
	return 0
}

// nv12Stride derives the luma row stride from the total NV12 buffer
// size: a full-res Y plane plus a half-height interleaved UV plane is
// 1.5 rows of stride per row of video.
func nv12Stride(dataLen, height int) int {
	if height <= 0 {
		return 0
	}
	return 2 * dataLen / (3 * height)
}
