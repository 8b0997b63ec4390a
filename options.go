package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chase3718/tonedrive/config"
	"github.com/chase3718/tonedrive/playback"
)

// options is the merged result of the command line and the config file.
type options struct {
	file        string
	baud        int
	port        string
	dry         bool
	midiOut     string
	ignoreID    bool
	tracks      []int
	speedShift  *int
	pitchShift  int
	tempoShift  int
	initialTick uint64 // µs, 0 means decoded default
	underflow   playback.UnderflowPolicy
	list        bool
	configPath  string
	saveConfig  bool
	debug       bool
}

var errSpeedConflict = errors.New("-speed-shift cannot be combined with -pitch-shift or -tempo-shift")

// parseTracks accepts "0,2,3"; the flag may also be repeated.
func parseTracks(dst *[]int) func(string) error {
	return func(s string) error {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 {
				return fmt.Errorf("bad track index %q", part)
			}
			*dst = append(*dst, n)
		}
		return nil
	}
}

// parseOptions parses args (without the program name) and fills in every
// flag that was not given explicitly from the config file.
func parseOptions(args []string, stderr io.Writer, load func(string) (*config.Config, error)) (*options, error) {
	fs := flag.NewFlagSet("tonedrive", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: tonedrive [flags] FILE.mid\n\n")
		fs.PrintDefaults()
	}

	opts := &options{}
	var (
		speedShift  int
		strictNotes bool
	)
	fs.IntVar(&opts.baud, "baud", config.DefaultConfig().BaudRate, "serial baud rate")
	fs.StringVar(&opts.port, "port", "", "serial port (prompted when empty)")
	fs.BoolVar(&opts.dry, "dry", false, "log tones instead of sending them")
	fs.StringVar(&opts.midiOut, "midi-out", "", "play on the MIDI output whose name contains `PATTERN`")
	fs.BoolVar(&opts.ignoreID, "ignore-id", false, "continue when the device answers with the wrong ID")
	fs.Func("tracks", "comma separated track `indices` to play (default all)", parseTracks(&opts.tracks))
	fs.IntVar(&speedShift, "speed-shift", 0, "shift pitch and tempo together by `N` semitones")
	fs.IntVar(&opts.pitchShift, "pitch-shift", 0, "shift pitch by `N` semitones")
	fs.IntVar(&opts.tempoShift, "tempo-shift", 0, "shift tempo by `N` semitones")
	fs.Uint64Var(&opts.initialTick, "assume-initial-tick", 0, "initial tick length in `µs`, taken as is")
	fs.BoolVar(&strictNotes, "strict-notes", false, "fail a track on a note-off without a sounding note")
	fs.BoolVar(&opts.list, "list", false, "print the tracks of FILE and exit")
	fs.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/tonedrive/config.yaml)")
	fs.BoolVar(&opts.saveConfig, "save-config", false, "write the effective settings to the config file")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch {
	case fs.NArg() == 1:
		opts.file = fs.Arg(0)
	case fs.NArg() == 0 && opts.saveConfig:
	default:
		fs.Usage()
		return nil, errors.New("expected exactly one MIDI file")
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["speed-shift"] {
		if set["pitch-shift"] || set["tempo-shift"] {
			return nil, errSpeedConflict
		}
		opts.speedShift = &speedShift
	}

	cfg, err := load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if !set["baud"] {
		opts.baud = cfg.BaudRate
	}
	if !set["port"] {
		opts.port = cfg.Port
	}
	if !set["midi-out"] {
		opts.midiOut = cfg.MIDIOut
	}
	if !set["ignore-id"] {
		opts.ignoreID = cfg.IgnoreID
	}
	if !set["pitch-shift"] {
		opts.pitchShift = cfg.PitchShift
	}
	if !set["tempo-shift"] {
		opts.tempoShift = cfg.TempoShift
	}
	if !set["debug"] {
		opts.debug = cfg.Debug
	}
	if set["strict-notes"] {
		opts.underflow = playback.UnderflowClamp
		if strictNotes {
			opts.underflow = playback.UnderflowStrict
		}
	} else {
		opts.underflow, err = playback.ParseUnderflowPolicy(cfg.Underflow)
		if err != nil {
			return nil, err
		}
	}

	if opts.baud <= 0 {
		return nil, fmt.Errorf("baud rate must be positive, got %d", opts.baud)
	}
	return opts, nil
}

// toConfig returns the settings -save-config persists.
func (o *options) toConfig() *config.Config {
	return &config.Config{
		Port:       o.port,
		BaudRate:   o.baud,
		IgnoreID:   o.ignoreID,
		MIDIOut:    o.midiOut,
		PitchShift: o.pitchShift,
		TempoShift: o.tempoShift,
		Underflow:  o.underflow.String(),
		Debug:      o.debug,
	}
}

func (o *options) speed() playback.SpeedConfig {
	if o.speedShift != nil {
		return playback.NewSpeedConfig(*o.speedShift, *o.speedShift)
	}
	return playback.NewSpeedConfig(o.pitchShift, o.tempoShift)
}

// startTick returns the tick length playback begins with. An explicit
// override is used as is; the decoded default follows the tempo shift.
func (o *options) startTick(decoded time.Duration) time.Duration {
	if o.initialTick > 0 {
		return time.Duration(o.initialTick) * time.Microsecond
	}
	us := uint32(decoded / time.Microsecond)
	return time.Duration(o.speed().ScaleTick(us)) * time.Microsecond
}
