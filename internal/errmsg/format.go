// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Session operations
	OpSessionOpen  Op = "open video"
	OpSessionClose Op = "close video"

	// Transport operations
	OpPlaybackPause   Op = "pause playback"
	OpPlaybackResume  Op = "resume playback"
	OpPlaybackSeek    Op = "seek"
	OpPlaybackSpeed   Op = "change playback speed"
	OpPlaybackRestart Op = "restart stream"

	// Thumbnail operations
	OpThumbnailExtract Op = "extract thumbnails"

	// Subtitle operations
	OpSubtitleLoad   Op = "load subtitles"
	OpSubtitleSelect Op = "select subtitle track"

	// Resume-position operations
	OpResumeLoad Op = "load saved position"
	OpResumeSave Op = "save playback position"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
