package player

import (
	"image"

	"github.com/nfnt/resize"
)

// Thumbnails seeks to each position in turn and converts the decoded
// frame there into a display-ready image, optionally downscaled by the
// given integer factor.
//
// Slow by design: each position costs an accurate seek plus a blocking
// wait for the frame to materialize. Intended for one-time, setup-time
// use, not the hot playback path. The externally observable
// paused/muted/position state is restored on both success and error.
func (s *Session) Thumbnails(positions []Position, downscale uint) ([]image.Image, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	savedPaused := s.Paused()
	savedMuted := s.Muted()
	savedPos := s.Position()
	savedRestart := s.RestartPending()

	s.SetMuted(true)
	if err := s.SetPaused(false); err != nil {
		s.SetMuted(savedMuted)
		return nil, err
	}
	defer func() {
		s.SetPaused(savedPaused)
		s.SetMuted(savedMuted)
		s.Seek(AtTime(savedPos), true)
		// Un-pausing a session parked at EOS queues a restart; put the
		// flag back so the next poll tick sees what the caller left.
		s.mu.Lock()
		s.restartPending = savedRestart
		s.mu.Unlock()
	}()

	out := make([]image.Image, 0, len(positions))
	for _, pos := range positions {
		gen := s.store.Generation()
		if err := s.Seek(pos, true); err != nil {
			return nil, err
		}

		// Wait for two installs: in the window between seek and wait a
		// frame from the old position may still come in.
		frame, err := s.store.WaitGeneration(gen+2, s.opts.ThumbnailTimeout)
		if err != nil {
			return nil, err
		}

		var img image.Image = frame.RGBA()
		if downscale > 1 {
			img = resize.Resize(uint(frame.Width)/downscale, 0, img, resize.Bilinear)
		}
		out = append(out, img)
	}
	return out, nil
}
