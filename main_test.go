package main

import (
	"errors"
	"io"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/chase3718/tonedrive/config"
	"github.com/chase3718/tonedrive/playback"
	"github.com/chase3718/tonedrive/score"
)

func fixedConfig(cfg *config.Config) func(string) (*config.Config, error) {
	return func(string) (*config.Config, error) {
		c := *cfg
		return &c, nil
	}
}

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := parseOptions([]string{"song.mid"}, io.Discard, fixedConfig(config.DefaultConfig()))
	if err != nil {
		t.Fatalf("parseOptions failed: %v", err)
	}
	if opts.file != "song.mid" || opts.baud != 250000 || opts.underflow != playback.UnderflowClamp {
		t.Fatalf("unexpected options %+v", opts)
	}
	if s := opts.speed(); s != playback.NormalSpeed {
		t.Fatalf("speed = %+v, expected normal", s)
	}
}

func TestParseOptionsFlagsOverrideConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Port = "/dev/ttyACM9"
	cfg.BaudRate = 115200
	cfg.PitchShift = 4
	cfg.TempoShift = -2
	cfg.Underflow = "strict"

	opts, err := parseOptions([]string{"-baud", "500000", "-pitch-shift", "0", "-strict-notes=false", "song.mid"},
		io.Discard, fixedConfig(cfg))
	if err != nil {
		t.Fatalf("parseOptions failed: %v", err)
	}
	if opts.baud != 500000 {
		t.Fatalf("baud = %d, expected flag value", opts.baud)
	}
	if opts.port != "/dev/ttyACM9" {
		t.Fatalf("port = %q, expected config value", opts.port)
	}
	if opts.pitchShift != 0 || opts.tempoShift != -2 {
		t.Fatalf("shifts = %d/%d, expected 0/-2", opts.pitchShift, opts.tempoShift)
	}
	if opts.underflow != playback.UnderflowClamp {
		t.Fatalf("underflow = %v, expected explicit clamp", opts.underflow)
	}
}

func TestParseOptionsUnderflowFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Underflow = "strict"
	opts, err := parseOptions([]string{"song.mid"}, io.Discard, fixedConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if opts.underflow != playback.UnderflowStrict {
		t.Fatalf("underflow = %v, expected strict", opts.underflow)
	}
}

func TestParseOptionsSpeedShift(t *testing.T) {
	opts, err := parseOptions([]string{"-speed-shift", "12", "song.mid"}, io.Discard, fixedConfig(config.DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	s := opts.speed()
	if math.Abs(s.Pitch-2) > 1e-12 || math.Abs(s.Tempo-2) > 1e-12 {
		t.Fatalf("speed = %+v, expected 2x both", s)
	}

	_, err = parseOptions([]string{"-speed-shift", "1", "-tempo-shift", "2", "song.mid"}, io.Discard, fixedConfig(config.DefaultConfig()))
	if !errors.Is(err, errSpeedConflict) {
		t.Fatalf("expected errSpeedConflict, got %v", err)
	}
}

func TestParseOptionsTracks(t *testing.T) {
	opts, err := parseOptions([]string{"-tracks", "0,2", "-tracks", "5", "song.mid"}, io.Discard, fixedConfig(config.DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(opts.tracks, []int{0, 2, 5}) {
		t.Fatalf("tracks = %v", opts.tracks)
	}
	if _, err := parseOptions([]string{"-tracks", "1,x", "song.mid"}, io.Discard, fixedConfig(config.DefaultConfig())); err == nil {
		t.Fatal("expected error for bad track index")
	}
}

func TestParseOptionsNeedsOneFile(t *testing.T) {
	if _, err := parseOptions(nil, io.Discard, fixedConfig(config.DefaultConfig())); err == nil {
		t.Fatal("expected error without a file")
	}
	if _, err := parseOptions([]string{"a.mid", "b.mid"}, io.Discard, fixedConfig(config.DefaultConfig())); err == nil {
		t.Fatal("expected error with two files")
	}
}

func TestStartTick(t *testing.T) {
	decoded := 1041 * time.Microsecond

	opts := &options{tempoShift: 12}
	if got := opts.startTick(decoded); got != 521*time.Microsecond {
		t.Fatalf("scaled start tick = %v, expected 521µs", got)
	}

	opts.initialTick = 500
	if got := opts.startTick(decoded); got != 500*time.Microsecond {
		t.Fatalf("override start tick = %v, expected 500µs", got)
	}
}

func TestRenderTracks(t *testing.T) {
	seq := &score.Sequence{
		TimeBase: score.TimeBase{TicksPerBeat: 480, Tick: 1041 * time.Microsecond},
		Timing:   "metrical",
		Total:    3,
		Tracks: []score.Track{
			{Index: 0, Name: "Lead", Instrument: "Square", Events: []score.Event{
				{Delta: 0, Kind: score.NoteUpdate{Key: 60, Velocity: 100}},
				{Delta: 480, Kind: score.NoteUpdate{Key: 60, Velocity: 0}},
			}},
			{Index: 2, Events: []score.Event{{Delta: 0, Kind: score.TempoUpdate{MicrosPerBeat: 400000}}}},
		},
	}
	out := renderTracks("song.mid", seq)
	for _, want := range []string{"song.mid", "metrical", "Lead", "Square", "480", "3 tracks"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", lines, out)
	}
}

func TestSaveConfigPersistsMergedSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Port = "/dev/ttyACM2"

	opts, err := parseOptions([]string{"-save-config", "-config", path, "-tempo-shift", "3", "-strict-notes"},
		io.Discard, fixedConfig(cfg))
	if err != nil {
		t.Fatalf("parseOptions failed: %v", err)
	}
	if opts.file != "" {
		t.Fatalf("file = %q, expected none", opts.file)
	}
	if err := opts.toConfig().Save(opts.configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Port != "/dev/ttyACM2" || got.TempoShift != 3 || got.Underflow != "strict" || got.BaudRate != 250000 {
		t.Fatalf("saved config = %+v", got)
	}
}
