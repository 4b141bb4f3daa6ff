package web

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvListenAddr = "COVERMAKER_LISTEN"
	EnvDevMode    = "COVERMAKER_DEV"
)

// DefaultMaxUploadBytes bounds image uploads.
const DefaultMaxUploadBytes = 32 << 20

// ServerConfig contains settings for running the HTTP server.
//
// The intended defaults differ per binary:
// - device:    :80
// - simulator: :8080
type ServerConfig struct {
	ListenAddr     string `toml:"listen"`
	DevMode        bool   `toml:"dev"`
	StaticDir      string `toml:"static_dir"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

// WithEnv returns cfg with the environment overrides applied.
func (cfg ServerConfig) WithEnv() (ServerConfig, error) {
	if listenAddr := os.Getenv(EnvListenAddr); listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if raw := os.Getenv(EnvDevMode); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("%s must be a boolean (got %q): %w", EnvDevMode, raw, err)
		}
		cfg.DevMode = parsed
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return cfg, nil
}

func DefaultServerConfigFromEnv(defaultListenAddr string) (ServerConfig, error) {
	return ServerConfig{ListenAddr: defaultListenAddr}.WithEnv()
}
