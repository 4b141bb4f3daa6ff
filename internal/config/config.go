// Package config loads the covermaker TOML configuration.
//
// Every section is optional; a missing file yields the defaults. The [render]
// section is a partial state patch applied on top of the built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rook-computer/covermaker/internal/imagecache"
	"github.com/rook-computer/covermaker/internal/render"
	"github.com/rook-computer/covermaker/internal/schedule"
	"github.com/rook-computer/covermaker/internal/state"
	"github.com/rook-computer/covermaker/internal/web"
)

const DefaultPath = "covermaker.toml"

// Config represents the top-level configuration.
type Config struct {
	Canvas CanvasConfig     `toml:"canvas"`
	Render schedule.Patch   `toml:"render"`
	Cache  CacheConfig      `toml:"cache"`
	Server web.ServerConfig `toml:"server"`
	Log    LogConfig        `toml:"log"`
	Fonts  FontsConfig      `toml:"fonts"`
}

type CanvasConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
	// FrameIntervalMS paces scheduler flushes.
	FrameIntervalMS int `toml:"frame_interval_ms"`
}

func (c CanvasConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

type CacheConfig struct {
	// Capacity is the number of decoded images kept.
	Capacity int `toml:"capacity"`
	// Exports is the number of recent exports kept for download.
	Exports int `toml:"exports"`
}

type LogConfig struct {
	// Path of the debug log; empty disables file logging.
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type FontsConfig struct {
	// Dir holds extra .ttf files registered at startup.
	Dir string `toml:"dir"`
}

func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{
			Width:           render.DefaultWidth,
			Height:          render.DefaultHeight,
			FrameIntervalMS: int(schedule.DefaultFrameInterval / time.Millisecond),
		},
		Cache: CacheConfig{
			Capacity: imagecache.DefaultCapacity,
			Exports:  8,
		},
		Server: web.ServerConfig{
			ListenAddr:     ":80",
			MaxUploadBytes: web.DefaultMaxUploadBytes,
		},
		Log: LogConfig{MaxSizeMB: 10, MaxBackups: 3},
	}
}

// Load reads path. A missing file returns the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks that all values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.FrameIntervalMS <= 0 {
		return fmt.Errorf("frame_interval_ms must be > 0, got %d", c.Canvas.FrameIntervalMS)
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be > 0, got %d", c.Cache.Capacity)
	}
	if c.Cache.Exports <= 0 {
		return fmt.Errorf("cache.exports must be > 0, got %d", c.Cache.Exports)
	}
	if c.Log.MaxSizeMB < 0 {
		return fmt.Errorf("log.max_size_mb must be >= 0, got %d", c.Log.MaxSizeMB)
	}
	if _, err := c.Render.Events(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// InitialState returns the defaults with the [render] patch applied.
func (c *Config) InitialState() (state.RenderState, error) {
	st := state.Default()
	events, err := c.Render.Events()
	if err != nil {
		return st, err
	}
	for _, e := range events {
		e.Apply(&st)
	}
	return st, nil
}

// Save writes the config as TOML.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
