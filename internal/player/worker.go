package player

import (
	"errors"
	"log/slog"
)

// runWorker is the decode loop, one goroutine per open session. It pulls
// decoded samples from the backend, installs them into the frame store
// and keeps the active subtitle cue current. The loop exits only via the
// alive flag: an exited worker silently stalls playback, so transient
// pull failures skip the iteration instead.
func (s *Session) runWorker() {
	defer close(s.workerDone)

	log := slog.With("session", s.id)
	log.Debug("decode worker started")

	for s.alive.Load() {
		var (
			sample *Sample
			err    error
		)
		if s.paused.Load() {
			// Preroll pull, so the first frame after a seek shows up
			// even while paused.
			sample, err = s.backend.TryPreroll(s.opts.PrerollTimeout)
		} else {
			sample, err = s.backend.PullSample(s.opts.PullTimeout)
		}

		if err != nil {
			if !errors.Is(err, ErrPullTimeout) && !errors.Is(err, ErrEndOfStream) {
				log.Debug("sample pull failed", "error", err)
			}
			continue
		}
		if sample == nil {
			continue
		}

		frame := &Frame{
			Data:     sample.Data,
			Width:    sample.Width,
			Height:   sample.Height,
			Stride:   sample.Stride,
			PTS:      sample.PTS,
			Duration: sample.Duration,
		}
		if frame.Stride <= 0 {
			frame.Stride = frame.Width
		}
		s.store.Write(frame)

		s.updateCue(frame)
	}

	log.Debug("decode worker stopped")
}

// updateCue installs a subtitle cue whose window overlaps the frame's
// window and clears the active cue once the play head passes its expiry.
func (s *Session) updateCue(frame *Frame) {
	start, end := frame.Window()

	s.cueMu.Lock()
	defer s.cueMu.Unlock()

	if s.sidecar != nil {
		cue := s.sidecar.CueAt(start)
		if cue != s.activeCue {
			s.activeCue = cue
			s.cueChanged = true
		}
		return
	}

	if cue := s.backend.PullSubtitle(); cue != nil && cue.Overlaps(start, end) {
		s.activeCue = cue
		s.cueChanged = true
	}
	if s.activeCue != nil && s.activeCue.Expired(start) {
		s.activeCue = nil
		s.cueChanged = true
	}
}
