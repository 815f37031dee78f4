package main

import (
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/reel/internal/config"
	"github.com/llehouerou/reel/internal/errmsg"
	"github.com/llehouerou/reel/internal/gst"
	"github.com/llehouerou/reel/internal/mpris"
	"github.com/llehouerou/reel/internal/playback"
	"github.com/llehouerou/reel/internal/player"
	"github.com/llehouerou/reel/internal/state"
	"github.com/llehouerou/reel/internal/subtitle"
)

var (
	flagPaused   = flag.Bool("paused", false, "open without starting playback")
	flagMute     = flag.Bool("mute", false, "start muted")
	flagLoop     = flag.Bool("loop", false, "restart at end of stream")
	flagSpeed    = flag.Float64("speed", 1.0, "playback rate (negative plays backward)")
	flagSeek     = flag.Duration("seek", 0, "seek to this position after opening")
	flagSubs     = flag.String("subs", "", "external subtitle file or URI")
	flagThumbs   = flag.String("thumbs", "", "comma-separated positions (seconds) to extract as PNG thumbnails, then exit")
	flagThumbDir = flag.String("thumb-dir", ".", "directory for extracted thumbnails")
	flagVerbose  = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: reel [flags] <uri-or-path>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(toURI(flag.Arg(0))); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(uri string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpInitialize, err))
	}
	pb := cfg.GetPlaybackConfig()

	var resume *state.Store
	if cfg.ResumeEnabled() {
		if cfg.Resume.DBPath != "" {
			resume, err = state.OpenPath(cfg.Resume.DBPath)
		} else {
			resume, err = state.Open()
		}
		if err != nil {
			// Playback works without persistence.
			slog.Warn("resume store unavailable", "error", err)
			resume = nil
		} else {
			defer resume.Close()
		}
	}

	var sidecar *subtitle.Track
	if cfg.SubtitlesEnabled() && cfg.SidecarEnabled() {
		sidecar, err = subtitle.Discover(uri)
		if err != nil {
			slog.Warn(errmsg.FormatWith(errmsg.OpSubtitleLoad, uri, err))
		} else if sidecar != nil {
			slog.Info("sidecar subtitles loaded", "cues", len(sidecar.Cues))
		}
	}

	backend, err := gst.New(uri, gst.Options{
		SubtitlesEnabled: cfg.SubtitlesEnabled() && sidecar == nil,
	})
	if err != nil {
		return fmt.Errorf("%s", errmsg.FormatWith(errmsg.OpSessionOpen, uri, err))
	}

	session, err := player.Open(backend, player.Options{
		StartPaused:      *flagPaused,
		PullTimeout:      pb.PullTimeout(),
		PrerollTimeout:   pb.PrerollTimeout(),
		ThumbnailTimeout: pb.ThumbnailTimeout(),
		AVSyncInterval:   pb.AVSyncInterval,
		Sidecar:          sidecar,
	})
	if err != nil {
		return fmt.Errorf("%s", errmsg.FormatWith(errmsg.OpSessionOpen, uri, err))
	}

	svc := playback.New(session, resume, uri)
	defer svc.Close()

	svc.SetVolume(pb.Volume)
	svc.SetMuted(*flagMute || pb.StartMuted)
	svc.SetLooping(*flagLoop || pb.Loop)

	if *flagSubs != "" {
		if err := svc.SetSubtitleURI(toURI(*flagSubs)); err != nil {
			slog.Warn(errmsg.FormatWith(errmsg.OpSubtitleSelect, *flagSubs, err))
		}
	}

	if *flagSeek > 0 {
		if err := svc.Seek(player.AtTime(*flagSeek), false); err != nil {
			slog.Warn(errmsg.Format(errmsg.OpPlaybackSeek, err))
		}
	}
	if *flagSpeed != 1.0 {
		if err := svc.SetSpeed(*flagSpeed); err != nil {
			slog.Warn(errmsg.Format(errmsg.OpPlaybackSpeed, err))
		}
	}

	if *flagThumbs != "" {
		return extractThumbnails(svc, *flagThumbs, *flagThumbDir)
	}

	if remote, err := mpris.New(svc, uri); err == nil {
		defer remote.Close()
	} else {
		slog.Warn("media remote unavailable", "error", err)
	}

	return pollLoop(svc)
}

// pollLoop drives the transport state machine the way a frontend's
// redraw cycle would, printing a status line once a second.
func pollLoop(svc playback.Service) error {
	sub := svc.Subscribe()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	w, h := svc.Size()
	slog.Info("playing",
		"size", fmt.Sprintf("%dx%d", w, h),
		"framerate", svc.Framerate(),
		"duration", svc.Duration().Round(time.Second),
	)

	tick := time.NewTicker(33 * time.Millisecond)
	defer tick.Stop()
	status := time.NewTicker(time.Second)
	defer status.Stop()

	var frames uint64
	var bytes uint64

	for {
		select {
		case <-sigCh:
			fmt.Println()
			return nil

		case <-tick.C:
			svc.Poll()
			if frame, fresh := svc.LatestFrame(); fresh {
				frames++
				bytes += uint64(len(frame.Data))
			}

		case <-status.C:
			line := fmt.Sprintf("\r%s / %s  %s frames  %s",
				formatDuration(svc.Position()),
				formatDuration(svc.Duration()),
				humanize.Comma(int64(frames)),
				humanize.Bytes(bytes),
			)
			if text, ok := svc.SubtitleText(); ok {
				line += "  [" + strings.ReplaceAll(text, "\n", " ") + "]"
			}
			fmt.Print(line)

		case ev := <-sub.Error:
			fmt.Println()
			return ev.Err

		case <-sub.EndOfStream:
			if !svc.Looping() {
				fmt.Println()
				slog.Info("end of stream", "frames", frames)
				return nil
			}

		case <-sub.Done:
			return nil
		}
	}
}

func extractThumbnails(svc playback.Service, spec, dir string) error {
	var positions []player.Position
	for _, part := range strings.Split(spec, ",") {
		secs, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("bad thumbnail position %q: %w", part, err)
		}
		positions = append(positions, player.AtTime(time.Duration(secs*float64(time.Second))))
	}

	imgs, err := svc.Thumbnails(positions, 4)
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpThumbnailExtract, err))
	}

	for i, img := range imgs {
		path := filepath.Join(dir, fmt.Sprintf("thumb-%03d.png", i))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}

// toURI maps a bare filesystem path to a file:// URI; anything with a
// scheme passes through.
func toURI(arg string) string {
	if strings.Contains(arg, "://") {
		return arg
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return arg
	}
	return "file://" + abs
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}
