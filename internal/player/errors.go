package player

import "errors"

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")

	// ErrCaps means the negotiated stream capabilities could not be read.
	ErrCaps = errors.New("failed to read media capabilities")

	// ErrBadFramerate means the stream reported a zero or non-finite framerate.
	ErrBadFramerate = errors.New("invalid framerate")

	// ErrInvalidSpeed means a zero or non-finite playback rate was requested.
	ErrInvalidSpeed = errors.New("invalid playback speed")

	// ErrPositionUnavailable means the current position could not be queried
	// at the time it was needed.
	ErrPositionUnavailable = errors.New("playback position unavailable")

	// ErrSync means a blocking wait for a decoded frame did not complete
	// in time. Fatal to the operation that waited, not to the session.
	ErrSync = errors.New("failed to sync with playback")

	// ErrPullTimeout is returned by backends when a bounded-timeout pull
	// produced no sample. Transient; the decode worker retries.
	ErrPullTimeout = errors.New("sample pull timed out")

	// ErrEndOfStream is returned by backends when a pull hits end of
	// stream. Transient for the worker; the bus message drives EOS state.
	ErrEndOfStream = errors.New("end of stream")
)
