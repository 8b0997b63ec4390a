package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Config holds the defaults tonedrive falls back to when a flag is not given.
type Config struct {
	Port       string `yaml:"port,omitempty"`
	BaudRate   int    `yaml:"baudRate"`
	IgnoreID   bool   `yaml:"ignoreId,omitempty"`
	MIDIOut    string `yaml:"midiOut,omitempty"`    // output port name pattern
	PitchShift int    `yaml:"pitchShift,omitempty"` // semitones
	TempoShift int    `yaml:"tempoShift,omitempty"` // semitones
	Underflow  string `yaml:"underflow,omitempty"`  // "clamp" or "strict"
	Debug      bool   `yaml:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BaudRate:  250000,
		Underflow: "clamp",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tonedrive"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config at path, or at ConfigPath when path is empty. A
// missing file yields the defaults. Fields absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	path, err := resolve(path)
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, or to ConfigPath when path is empty.
func (c *Config) Save(path string) error {
	path, err := resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the player cannot use.
func (c *Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("baudRate must be positive, got %d", c.BaudRate)
	}
	switch c.Underflow {
	case "", "clamp", "strict":
	default:
		return fmt.Errorf("underflow must be clamp or strict, got %q", c.Underflow)
	}
	return nil
}

// ExpandPath resolves a leading ~ in a user-supplied path.
func ExpandPath(path string) (string, error) {
	return homedir.Expand(path)
}

func resolve(path string) (string, error) {
	if path == "" {
		return ConfigPath()
	}
	return homedir.Expand(path)
}
