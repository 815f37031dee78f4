package subtitle

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Discover looks for a sidecar .srt file next to a local media URI and
// parses it. Returns nil without error when the URI is not a local file
// or no sidecar exists.
func Discover(mediaURI string) (*Track, error) {
	path := localPath(mediaURI)
	if path == "" {
		return nil, nil
	}

	ext := filepath.Ext(path)
	sidecar := strings.TrimSuffix(path, ext) + ".srt"

	f, err := os.Open(sidecar)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return ParseSRT(f)
}

// localPath maps a file:// URI or a bare path to a filesystem path,
// returning "" for remote URIs.
func localPath(mediaURI string) string {
	u, err := url.Parse(mediaURI)
	if err != nil {
		return mediaURI
	}
	switch u.Scheme {
	case "":
		return mediaURI
	case "file":
		return u.Path
	default:
		return ""
	}
}
