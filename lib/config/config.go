// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// PathEnvVar names the config file when --config is not given.
const PathEnvVar = "GAMEMASTER_CONFIG"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GAMEMASTER_"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is a developer machine talking to a local mock console.
	Development Environment = "development"
	// Staging is a rehearsal room.
	Staging Environment = "staging"
	// Production is the installed room.
	Production Environment = "production"
)

// Config is the complete client configuration.
type Config struct {
	// Environment selects an override section.
	// Env: GAMEMASTER_ENVIRONMENT
	Environment Environment `yaml:"environment"`

	Console ConsoleConfig `yaml:"console"`
	Game    GameConfig    `yaml:"game"`
	Audio   AudioConfig   `yaml:"audio"`
	Log     LogConfig     `yaml:"log"`

	// Per-environment overrides, applied after the base file.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the sections that can be overridden per
// environment.
type Overrides struct {
	Console *ConsoleConfig  `yaml:"console,omitempty"`
	Audio   *AudioOverrides `yaml:"audio,omitempty"`
	Log     *LogConfig      `yaml:"log,omitempty"`
}

// AudioOverrides mirrors AudioConfig with optional switches, so a
// section that only changes a volume leaves playback enabled.
type AudioOverrides struct {
	Enabled          *bool         `yaml:"enabled"`
	Debug            *bool         `yaml:"debug"`
	MasterVolume     float64       `yaml:"master_volume"`
	VoiceVolume      float64       `yaml:"voice_volume"`
	AmbientVolume    float64       `yaml:"ambient_volume"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	SampleRate       int           `yaml:"sample_rate"`
	CacheSize        string        `yaml:"cache_size"`
}

// ConsoleConfig configures the connection to the operator console.
type ConsoleConfig struct {
	// URL is the console websocket endpoint.
	// Default: ws://127.0.0.1:3000/ws
	URL string `yaml:"url" env:"URL"`

	// Codec is the frame encoding: json or cbor.
	// Default: json
	Codec string `yaml:"codec" env:"CODEC"`

	// ReconnectDelay is the base delay before reconnecting.
	// Default: 1s
	ReconnectDelay time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY"`

	// ReconnectDelayMax caps every reconnect delay.
	// Default: 5s
	ReconnectDelayMax time.Duration `yaml:"reconnect_delay_max" env:"RECONNECT_DELAY_MAX"`

	// RandomizationFactor spreads reconnect delays by ±factor.
	// Default: 0.5
	RandomizationFactor float64 `yaml:"randomization_factor" env:"RANDOMIZATION_FACTOR"`

	// ReconnectAttempts bounds consecutive failed reconnects. Zero
	// retries forever.
	// Default: 0
	ReconnectAttempts int `yaml:"reconnect_attempts" env:"RECONNECT_ATTEMPTS"`

	// DialTimeout bounds one connection attempt.
	// Default: 20s
	DialTimeout time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`

	// StateReplayDelay separates registration from the replayed state.
	// Default: 100ms
	StateReplayDelay time.Duration `yaml:"state_replay_delay" env:"STATE_REPLAY_DELAY"`

	Heartbeat HeartbeatConfig `yaml:"heartbeat" envPrefix:"HEARTBEAT_"`
}

// HeartbeatConfig configures connection liveness checks.
type HeartbeatConfig struct {
	// Interval is the ping period. Zero disables the heartbeat.
	// Default: 25s
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`

	// Timeout is how long past Interval a silent connection survives.
	// Default: 20s
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// GameConfig identifies the game to the console.
type GameConfig struct {
	// ID and Name override the game's own registration identity.
	ID   string `yaml:"id" env:"GAME_ID"`
	Name string `yaml:"name" env:"GAME_NAME"`

	// Role is an optional registration role.
	Role string `yaml:"role" env:"GAME_ROLE"`

	// ActionsFile is a JSONC action manifest replacing the built-in
	// action list.
	ActionsFile string `yaml:"actions_file" env:"ACTIONS_FILE"`

	// Solution overrides the lock screen password.
	Solution string `yaml:"solution" env:"SOLUTION"`
}

// AudioConfig configures the audio engine and playback backend.
type AudioConfig struct {
	// Enabled turns playback on at startup.
	// Default: true
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Debug logs every audio command at info level.
	Debug bool `yaml:"debug" env:"DEBUG"`

	// Initial bus gains in [0,1].
	// Default: 1
	MasterVolume  float64 `yaml:"master_volume" env:"MASTER_VOLUME"`
	VoiceVolume   float64 `yaml:"voice_volume" env:"VOICE_VOLUME"`
	AmbientVolume float64 `yaml:"ambient_volume" env:"AMBIENT_VOLUME"`

	// ProgressInterval is the preset progress report period.
	// Default: 250ms
	ProgressInterval time.Duration `yaml:"progress_interval" env:"PROGRESS_INTERVAL"`

	// SampleRate is the output sample rate in Hz.
	// Default: 48000
	SampleRate int `yaml:"sample_rate" env:"SAMPLE_RATE"`

	// CacheSize bounds decoded clip memory, e.g. "256MiB".
	// Default: 256MiB
	CacheSize string `yaml:"cache_size" env:"CACHE_SIZE"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level" env:"LEVEL"`

	// Format is auto, text or json. Auto picks text on a terminal.
	// Default: auto
	Format string `yaml:"format" env:"FORMAT"`

	// Output is a file path, or "stderr".
	// Default: stderr
	Output string `yaml:"output" env:"OUTPUT"`
}

// Default returns the configuration of the installed room.
func Default() *Config {
	return &Config{
		Environment: Development,
		Console: ConsoleConfig{
			URL:                 "ws://127.0.0.1:3000/ws",
			Codec:               "json",
			ReconnectDelay:      time.Second,
			ReconnectDelayMax:   5 * time.Second,
			RandomizationFactor: 0.5,
			DialTimeout:         20 * time.Second,
			StateReplayDelay:    100 * time.Millisecond,
			Heartbeat: HeartbeatConfig{
				Interval: 25 * time.Second,
				Timeout:  20 * time.Second,
			},
		},
		Audio: AudioConfig{
			Enabled:          true,
			MasterVolume:     1,
			VoiceVolume:      1,
			AmbientVolume:    1,
			ProgressInterval: 250 * time.Millisecond,
			SampleRate:       48000,
			CacheSize:        "256MiB",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
			Output: "stderr",
		},
	}
}

// Load resolves the config file from flagPath, else the
// GAMEMASTER_CONFIG environment variable, else uses the defaults
// alone, then layers environment overrides on top.
func Load(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path == "" {
		return finish(Default())
	}
	return LoadFile(path)
}

// LoadFile loads the config at path over the defaults, then layers
// environment overrides on top.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	// Environment variables may select the environment, so parse them
	// once to learn it and again after the section so they still win.
	if err := cfg.parseEnvironment(); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	if err := cfg.parseEnvironment(); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes one YAML file into c, rejecting unknown keys.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// parseEnvironment applies GAMEMASTER_* variables section by section.
func (c *Config) parseEnvironment() error {
	if value, ok := os.LookupEnv(EnvPrefix + "ENVIRONMENT"); ok && value != "" {
		c.Environment = Environment(value)
	}
	sections := []struct {
		target any
		prefix string
	}{
		{&c.Console, EnvPrefix},
		{&c.Game, EnvPrefix},
		{&c.Audio, EnvPrefix + "AUDIO_"},
		{&c.Log, EnvPrefix + "LOG_"},
	}
	for _, section := range sections {
		if err := env.ParseWithOptions(section.target, env.Options{Prefix: section.prefix}); err != nil {
			return fmt.Errorf("parsing %s* environment: %w", section.prefix, err)
		}
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if console := overrides.Console; console != nil {
		overrideString(&c.Console.URL, console.URL)
		overrideString(&c.Console.Codec, console.Codec)
		overrideDuration(&c.Console.ReconnectDelay, console.ReconnectDelay)
		overrideDuration(&c.Console.ReconnectDelayMax, console.ReconnectDelayMax)
		if console.RandomizationFactor != 0 {
			c.Console.RandomizationFactor = console.RandomizationFactor
		}
		if console.ReconnectAttempts != 0 {
			c.Console.ReconnectAttempts = console.ReconnectAttempts
		}
		overrideDuration(&c.Console.DialTimeout, console.DialTimeout)
		overrideDuration(&c.Console.StateReplayDelay, console.StateReplayDelay)
		overrideDuration(&c.Console.Heartbeat.Interval, console.Heartbeat.Interval)
		overrideDuration(&c.Console.Heartbeat.Timeout, console.Heartbeat.Timeout)
	}

	if audio := overrides.Audio; audio != nil {
		if audio.Enabled != nil {
			c.Audio.Enabled = *audio.Enabled
		}
		if audio.Debug != nil {
			c.Audio.Debug = *audio.Debug
		}
		if audio.MasterVolume != 0 {
			c.Audio.MasterVolume = audio.MasterVolume
		}
		if audio.VoiceVolume != 0 {
			c.Audio.VoiceVolume = audio.VoiceVolume
		}
		if audio.AmbientVolume != 0 {
			c.Audio.AmbientVolume = audio.AmbientVolume
		}
		overrideDuration(&c.Audio.ProgressInterval, audio.ProgressInterval)
		if audio.SampleRate != 0 {
			c.Audio.SampleRate = audio.SampleRate
		}
		overrideString(&c.Audio.CacheSize, audio.CacheSize)
	}

	if log := overrides.Log; log != nil {
		overrideString(&c.Log.Level, log.Level)
		overrideString(&c.Log.Format, log.Format)
		overrideString(&c.Log.Output, log.Output)
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func overrideDuration(target *time.Duration, value time.Duration) {
	if value != 0 {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns.
func (c *Config) expandVariables() {
	c.Console.URL = expandVars(c.Console.URL)
	c.Game.ActionsFile = expandVars(c.Game.ActionsFile)
	c.Log.Output = expandVars(c.Log.Output)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// CacheBytes returns Audio.CacheSize in bytes.
func (c *Config) CacheBytes() (int64, error) {
	size, err := humanize.ParseBytes(c.Audio.CacheSize)
	if err != nil {
		return 0, fmt.Errorf("audio.cache_size: %w", err)
	}
	if size > 1<<62 {
		return 0, fmt.Errorf("audio.cache_size %q is too large", c.Audio.CacheSize)
	}
	return int64(size), nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if parsed, err := url.Parse(c.Console.URL); err != nil {
		errs = append(errs, fmt.Errorf("console.url: %w", err))
	} else if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		errs = append(errs, fmt.Errorf("console.url must be ws:// or wss://, got %q", c.Console.URL))
	}
	if !slices.Contains([]string{"json", "cbor"}, c.Console.Codec) {
		errs = append(errs, fmt.Errorf("console.codec must be json or cbor, got %q", c.Console.Codec))
	}
	if c.Console.RandomizationFactor < 0 || c.Console.RandomizationFactor > 1 {
		errs = append(errs, fmt.Errorf("console.randomization_factor must be within [0,1]"))
	}
	if c.Console.ReconnectAttempts < 0 {
		errs = append(errs, fmt.Errorf("console.reconnect_attempts must not be negative"))
	}
	if c.Console.ReconnectDelayMax < c.Console.ReconnectDelay {
		errs = append(errs, fmt.Errorf("console.reconnect_delay_max is below console.reconnect_delay"))
	}
	if c.Console.Heartbeat.Interval < 0 || c.Console.Heartbeat.Timeout < 0 {
		errs = append(errs, fmt.Errorf("console.heartbeat durations must not be negative"))
	}

	volumes := map[string]float64{
		"audio.master_volume":  c.Audio.MasterVolume,
		"audio.voice_volume":   c.Audio.VoiceVolume,
		"audio.ambient_volume": c.Audio.AmbientVolume,
	}
	for _, name := range []string{"audio.master_volume", "audio.voice_volume", "audio.ambient_volume"} {
		if volume := volumes[name]; volume < 0 || volume > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, volume))
		}
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive"))
	}
	if _, err := c.CacheBytes(); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error"))
	}
	if !slices.Contains([]string{"auto", "text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of auto, text, json"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
