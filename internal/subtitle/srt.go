package subtitle

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Matches SRT timing lines like "00:01:02,345 --> 00:01:04,000".
var timingRe = regexp.MustCompile(
	`^(\d+):(\d+):(\d+)[,.](\d+)\s*-->\s*(\d+):(\d+):(\d+)[,.](\d+)`)

// ParseSRT parses SubRip subtitles from a reader. Malformed blocks are
// skipped rather than failing the whole file.
func ParseSRT(r io.Reader) (*Track, error) {
	track := &Track{}
	scanner := bufio.NewScanner(r)

	var cur *Cue
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			if cur != nil && cur.Text != "" {
				track.Cues = append(track.Cues, *cur)
			}
			cur = nil
			continue
		}

		if m := timingRe.FindStringSubmatch(line); m != nil {
			start, err1 := parseTimestamp(m[1], m[2], m[3], m[4])
			end, err2 := parseTimestamp(m[5], m[6], m[7], m[8])
			if err1 != nil || err2 != nil || end <= start {
				cur = nil
				continue
			}
			cur = &Cue{Start: start, End: end}
			continue
		}

		if cur == nil {
			// Sequence counter or stray text before a timing line.
			continue
		}
		if cur.Text != "" {
			cur.Text += "\n"
		}
		cur.Text += line
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if cur != nil && cur.Text != "" {
		track.Cues = append(track.Cues, *cur)
	}

	sortCues(track.Cues)
	return track, nil
}

// parseTimestamp converts h/m/s/fraction fields into a Duration. The
// fraction field is milliseconds, but two-digit centiseconds appear in
// the wild and are scaled up.
func parseTimestamp(h, m, s, frac string) (time.Duration, error) {
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	millis, err := strconv.Atoi(frac)
	if err != nil {
		return 0, err
	}
	if len(frac) == 2 {
		millis *= 10
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}
