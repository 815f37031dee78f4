// Package subtitle provides timed-cue parsing and lookup for sidecar
// subtitle files and backend subtitle tracks.
package subtitle

import (
	"sort"
	"time"
)

// Cue is a single subtitle with its active-time window [Start, End).
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Overlaps reports whether the cue's window intersects a frame's display
// window.
func (c *Cue) Overlaps(frameStart, frameEnd time.Duration) bool {
	return c.End > frameStart && frameEnd > c.Start
}

// Expired reports whether the play head has passed the cue.
func (c *Cue) Expired(pos time.Duration) bool {
	return pos >= c.End
}

// Track is an ordered list of cues.
type Track struct {
	Cues []Cue
}

// CueAt returns the cue active at the given playback position, or nil.
// When windows overlap, the latest-started active cue wins.
func (t *Track) CueAt(pos time.Duration) *Cue {
	if t == nil || len(t.Cues) == 0 {
		return nil
	}
	// Cues are ordered by start, but ends are not monotonic when windows
	// overlap, so binary search only on start and walk back from there.
	i := sort.Search(len(t.Cues), func(i int) bool {
		return t.Cues[i].Start > pos
	})
	for j := i - 1; j >= 0; j-- {
		if t.Cues[j].End > pos {
			return &t.Cues[j]
		}
	}
	return nil
}

// sortCues orders cues by start time; parsers call it before returning.
func sortCues(cues []Cue) {
	sort.Slice(cues, func(i, j int) bool {
		return cues[i].Start < cues[j].Start
	})
}
