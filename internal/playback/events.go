package playback

// FrameEvent is emitted when a new decoded frame is available for
// presentation. At most one fires per poll tick.
type FrameEvent struct{}

// SubtitleEvent is emitted when the active subtitle cue changed. Text is
// empty with Visible false when the cue was cleared.
type SubtitleEvent struct {
	Text    string
	Visible bool
}

// EndOfStreamEvent is emitted when the backend reports end of stream,
// before any loop-restart handling.
type EndOfStreamEvent struct{}

// ErrorEvent carries a backend-reported stream error. The session keeps
// running; the subscriber decides whether to tear it down.
type ErrorEvent struct {
	Err error
}
