package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chase3718/tonedrive/config"
	"github.com/chase3718/tonedrive/playback"
	"github.com/chase3718/tonedrive/score"
)

// logger is the package-wide structured logger. Safe to use before initLogger
// is called; defaults to slog.Default().
var logger = slog.Default()

// initLogger configures the shared slog logger and calls slog.SetDefault so
// the stdlib log package also routes through the same handler.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug, // include file:line in debug mode
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr, config.Load)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "tonedrive:", err)
		os.Exit(2)
	}
	initLogger(opts.debug)

	if opts.saveConfig {
		if err := opts.toConfig().Save(opts.configPath); err != nil {
			logger.Error("config: save failed", "err", err)
			os.Exit(1)
		}
		logger.Info("config: saved", "path", opts.configPath)
		if opts.file == "" {
			return
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		logger.Error("tonedrive failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	path, err := config.ExpandPath(opts.file)
	if err != nil {
		return err
	}
	seq, err := score.Load(path, opts.tracks)
	if err != nil {
		return err
	}
	if opts.list {
		fmt.Print(renderTracks(path, seq))
		return nil
	}

	speed := opts.speed()
	tb := seq.TimeBase
	tb.Tick = opts.startTick(tb.Tick)
	logger.Info("tonedrive starting",
		"file", path,
		"timing", seq.Timing,
		"tracks", len(seq.Tracks),
		"of", seq.Total,
		"tick", tb.Tick,
		"pitch", speed.Pitch,
		"tempo", speed.Tempo,
		"dry", opts.dry,
	)

	dev, err := openDevice(opts)
	if err != nil {
		return err
	}
	defer dev.Close()

	player := &playback.Player{Underflow: opts.underflow, Logger: logger}
	playErr := player.Play(ctx, tb, seq.Tracks, speed, dev)
	if errors.Is(playErr, context.Canceled) {
		logger.Warn("interrupted: silencing device")
	}

	// Silence whatever is still sounding, however playback ended.
	if err := dev.Reset(); err != nil {
		logger.Warn("device reset failed", "err", err)
		if playErr == nil {
			playErr = fmt.Errorf("reset: %w", err)
		}
	}
	return playErr
}
