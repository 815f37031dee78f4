package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Playback tuning
	Playback PlaybackConfig `koanf:"playback"`

	// Resume position persistence
	Resume ResumeConfig `koanf:"resume"`

	// Sidecar subtitle handling
	Subtitles SubtitlesConfig `koanf:"subtitles"`
}

// PlaybackConfig holds decode-loop and transport tuning.
type PlaybackConfig struct {
	PullTimeoutMs      int     `koanf:"pull_timeout_ms"`      // streaming sample pull bound (default: 100)
	PrerollTimeoutMs   int     `koanf:"preroll_timeout_ms"`   // paused preroll pull bound (default: 50)
	ThumbnailTimeoutMs int     `koanf:"thumbnail_timeout_ms"` // per-thumbnail frame wait (default: 5000)
	AVSyncInterval     int     `koanf:"avsync_interval"`      // latency samples between offset write-backs (default: 128)
	StartMuted         bool    `koanf:"start_muted"`
	Loop               bool    `koanf:"loop"`
	Volume             float64 `koanf:"volume"` // 0.0-1.0 (default: 1.0)
}

// ResumeConfig controls saved playback positions.
type ResumeConfig struct {
	Enabled *bool  `koanf:"enabled"` // default: true
	DBPath  string `koanf:"db_path"` // empty means the xdg data dir
}

// SubtitlesConfig controls subtitle discovery and display.
type SubtitlesConfig struct {
	Enabled *bool `koanf:"enabled"` // default: true
	Sidecar *bool `koanf:"sidecar"` // look for .srt next to the media (default: true)
}

func Load() (*Config, error) {
	return loadPaths(getConfigPaths())
}

func loadPaths(configPaths []string) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Expand ~ in the resume database path
	if cfg.Resume.DBPath != "" {
		cfg.Resume.DBPath = expandPath(cfg.Resume.DBPath)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/reel/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reel", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetPlaybackConfig returns the playback configuration with defaults applied.
func (c *Config) GetPlaybackConfig() PlaybackConfig {
	cfg := c.Playback

	if cfg.PullTimeoutMs <= 0 {
		cfg.PullTimeoutMs = 100
	}
	if cfg.PrerollTimeoutMs <= 0 {
		cfg.PrerollTimeoutMs = 50
	}
	if cfg.ThumbnailTimeoutMs <= 0 {
		cfg.ThumbnailTimeoutMs = 5000
	}
	if cfg.AVSyncInterval <= 0 {
		cfg.AVSyncInterval = 128
	}
	if cfg.Volume <= 0 || cfg.Volume > 1 {
		cfg.Volume = 1.0
	}

	return cfg
}

// PullTimeout returns the streaming pull bound as a duration.
func (p PlaybackConfig) PullTimeout() time.Duration {
	return time.Duration(p.PullTimeoutMs) * time.Millisecond
}

// PrerollTimeout returns the preroll pull bound as a duration.
func (p PlaybackConfig) PrerollTimeout() time.Duration {
	return time.Duration(p.PrerollTimeoutMs) * time.Millisecond
}

// ThumbnailTimeout returns the per-thumbnail wait bound as a duration.
func (p PlaybackConfig) ThumbnailTimeout() time.Duration {
	return time.Duration(p.ThumbnailTimeoutMs) * time.Millisecond
}

// ResumeEnabled reports whether position persistence is on.
func (c *Config) ResumeEnabled() bool {
	return c.Resume.Enabled == nil || *c.Resume.Enabled
}

// SubtitlesEnabled reports whether subtitles are shown at all.
func (c *Config) SubtitlesEnabled() bool {
	return c.Subtitles.Enabled == nil || *c.Subtitles.Enabled
}

// SidecarEnabled reports whether sidecar .srt discovery is on.
func (c *Config) SidecarEnabled() bool {
	return c.Subtitles.Sidecar == nil || *c.Subtitles.Sidecar
}
