// Package config loads sequencer settings from a YAML file with
// environment overrides.
//
// Precedence, lowest first: Default(), the YAML file, SEQUENCER_*
// environment variables, then CLI flags (applied by the caller).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sequencer/internal/engine"
	"github.com/roach88/sequencer/internal/sequence"
)

// Config is the complete sequencer configuration.
type Config struct {
	Recorder RecorderConfig `yaml:"recorder"`
	Player   PlayerConfig   `yaml:"player"`

	// Archive is the SQLite sequence archive path. Empty disables it.
	Archive string `yaml:"archive" env:"SEQUENCER_DB"`

	// Inbox is a directory watched for sequence files. Empty disables it.
	Inbox string `yaml:"inbox" env:"SEQUENCER_INBOX"`
}

// RecorderConfig holds the component-level recording defaults.
type RecorderConfig struct {
	MaxElements      int           `yaml:"max_elements" env:"SEQUENCER_MAX_ELEMENTS"`
	MaxDuration      time.Duration `yaml:"max_duration" env:"SEQUENCER_MAX_DURATION"`
	StartImmediately bool          `yaml:"start_immediately" env:"SEQUENCER_START_IMMEDIATELY"`
}

// PlayerConfig holds replay settings.
type PlayerConfig struct {
	RunOnLoad bool          `yaml:"run_on_load" env:"SEQUENCER_RUN_ON_LOAD"`
	Tick      time.Duration `yaml:"tick" env:"SEQUENCER_TICK"`
	Ordering  string        `yaml:"ordering" env:"SEQUENCER_ORDERING"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Player: PlayerConfig{
			Tick:     engine.DefaultTick,
			Ordering: sequence.OrderAsIs.String(),
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result. Unknown YAML keys are
// rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Recorder.MaxElements < 0 {
		return fmt.Errorf("recorder.max_elements must be >= 0, got %d", c.Recorder.MaxElements)
	}
	if c.Recorder.MaxDuration < 0 {
		return fmt.Errorf("recorder.max_duration must be >= 0, got %s", c.Recorder.MaxDuration)
	}
	if c.Player.Tick <= 0 {
		return fmt.Errorf("player.tick must be > 0, got %s", c.Player.Tick)
	}
	if _, err := sequence.ParseOrderPolicy(c.Player.Ordering); err != nil {
		return fmt.Errorf("player.ordering: %w", err)
	}
	return nil
}

// RecordDefaults returns the recorder defaults as engine options.
func (c *Config) RecordDefaults() engine.RecordOptions {
	return engine.RecordOptions{
		MaxElements:      c.Recorder.MaxElements,
		MaxDuration:      c.Recorder.MaxDuration,
		StartImmediately: c.Recorder.StartImmediately,
	}
}

// PlayerOptions returns the engine options for a player registry.
// Call after Validate.
func (c *Config) PlayerOptions() []engine.Option {
	policy, _ := sequence.ParseOrderPolicy(c.Player.Ordering)
	return []engine.Option{
		engine.WithTick(c.Player.Tick),
		engine.WithOrderPolicy(policy),
		engine.WithRunOnLoad(c.Player.RunOnLoad),
	}
}
