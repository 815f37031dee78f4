//go:build linux

package mpris

import (
	"fmt"
	"hash/fnv"
	"path/filepath"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/reel/internal/playback"
	"github.com/llehouerou/reel/internal/player"
)

// Adapter exposes the playback service as an MPRIS media player over
// D-Bus, so desktop media keys and applets can drive the transport.
type Adapter struct {
	service playback.Service
	server  *server.Server
}

// New creates and starts a new MPRIS adapter for the given media URI.
func New(service playback.Service, uri string) (*Adapter, error) {
	a := &Adapter{service: service}

	rootAdapter := &rootAdapter{}
	playerAdapter := &playerAdapter{service: service, uri: uri, volume: 1.0}

	a.server = server.NewServer("reel", rootAdapter, playerAdapter)

	// Start the server in background
	go func() {
		_ = a.server.Listen()
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil // Track list interface not implemented
}

func (r *rootAdapter) Identity() (string, error) {
	return "Reel", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"video/mp4", "video/x-matroska", "video/webm"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and optional interfaces.
type playerAdapter struct {
	service playback.Service
	uri     string
	volume  float64
}

func (p *playerAdapter) Next() error {
	return nil // Single-media player, no queue
}

func (p *playerAdapter) Previous() error {
	return p.service.Seek(player.AtTime(0), false)
}

func (p *playerAdapter) Pause() error {
	return p.service.SetPaused(true)
}

func (p *playerAdapter) PlayPause() error {
	return p.service.SetPaused(!p.service.Paused())
}

func (p *playerAdapter) Stop() error {
	if err := p.service.SetPaused(true); err != nil {
		return err
	}
	return p.service.Seek(player.AtTime(0), false)
}

func (p *playerAdapter) Play() error {
	return p.service.SetPaused(false)
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	target := p.service.Position() + time.Duration(offset)*time.Microsecond
	if target < 0 {
		target = 0
	}
	return p.service.Seek(player.AtTime(target), false)
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	return p.service.Seek(player.AtTime(time.Duration(position)*time.Microsecond), true)
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	if p.service.Paused() {
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusPlaying, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return p.service.Speed(), nil
}

func (p *playerAdapter) SetRate(rate float64) error {
	return p.service.SetSpeed(rate)
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(p.uri)),
		Length:  types.Microseconds(p.service.Duration().Microseconds()),
		Title:   filepath.Base(p.uri),
		Url:     p.uri,
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.volume, nil
}

func (p *playerAdapter) SetVolume(volume float64) error {
	p.volume = volume
	p.service.SetVolume(volume)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.service.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return -8.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 8.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	if p.service.Looping() {
		return types.LoopStatusTrack, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	p.service.SetLooping(status != types.LoopStatusNone)
	return nil
}

func formatTrackID(uri string) string {
	h := fnv.New64a()
	h.Write([]byte(uri))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
