package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	defaultAppName         = "Spotify"
	defaultAppPath         = "/Applications/Spotify.app"
	defaultTickInterval    = 1 * time.Second
	defaultPlayingInterval = 2 * time.Second
	defaultIdleInterval    = 5 * time.Second
	defaultHTTPTimeout     = 10 * time.Second
	defaultPaletteSize     = 3
)

// AppConfig holds application configuration
type AppConfig struct {
	logger          *zap.Logger
	appName         string
	appPath         string
	tickInterval    time.Duration
	playingInterval time.Duration
	idleInterval    time.Duration
	httpTimeout     time.Duration
	autoLaunch      bool
	paletteSize     int
}

// NewAppConfig creates a new application configuration instance.
// Values come from environment variables with sensible defaults; a .env
// file in the working directory is loaded first when present.
func NewAppConfig(logger *zap.Logger) *AppConfig {
	// Best effort: a missing .env file is the normal case
	_ = godotenv.Load()

	cfg := &AppConfig{
		logger:          logger,
		appName:         envString("NOWBAR_APP_NAME", defaultAppName),
		appPath:         os.ExpandEnv(envString("NOWBAR_APP_PATH", defaultAppPath)),
		tickInterval:    envDuration(logger, "NOWBAR_TICK_INTERVAL", defaultTickInterval),
		playingInterval: envDuration(logger, "NOWBAR_PLAYING_INTERVAL", defaultPlayingInterval),
		idleInterval:    envDuration(logger, "NOWBAR_IDLE_INTERVAL", defaultIdleInterval),
		httpTimeout:     envDuration(logger, "NOWBAR_HTTP_TIMEOUT", defaultHTTPTimeout),
		autoLaunch:      envBool("NOWBAR_AUTOLAUNCH"),
		paletteSize:     envInt(logger, "NOWBAR_PALETTE_SIZE", defaultPaletteSize),
	}

	logger.Info("Configuration loaded",
		zap.String("appName", cfg.appName),
		zap.String("appPath", cfg.appPath),
		zap.Duration("tickInterval", cfg.tickInterval),
		zap.Duration("playingInterval", cfg.playingInterval),
		zap.Duration("idleInterval", cfg.idleInterval),
		zap.Bool("autoLaunch", cfg.autoLaunch))

	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(logger *zap.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logger.Warn("Invalid duration in environment, using default",
			zap.String("key", key),
			zap.String("value", v),
			zap.Duration("default", fallback))
		return fallback
	}
	return d
}

func envInt(logger *zap.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("Invalid integer in environment, using default",
			zap.String("key", key),
			zap.String("value", v),
			zap.Int("default", fallback))
		return fallback
	}
	return n
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

// AppName returns the name of the external music application
func (c *AppConfig) AppName() string {
	return c.appName
}

// AppPath returns the expected install path of the application
func (c *AppConfig) AppPath() string {
	return c.appPath
}

// TickInterval returns the base poll timer cadence
func (c *AppConfig) TickInterval() time.Duration {
	return c.tickInterval
}

// PlayingInterval returns the query throttle window while playing
func (c *AppConfig) PlayingInterval() time.Duration {
	return c.playingInterval
}

// IdleInterval returns the query throttle window while idle
func (c *AppConfig) IdleInterval() time.Duration {
	return c.idleInterval
}

// HTTPTimeout returns the timeout for artwork fetches
func (c *AppConfig) HTTPTimeout() time.Duration {
	return c.httpTimeout
}

// AutoLaunch reports whether to launch the application at startup
func (c *AppConfig) AutoLaunch() bool {
	return c.autoLaunch
}

// PaletteSize returns how many accent colors to extract from artwork
func (c *AppConfig) PaletteSize() int {
	return c.paletteSize
}
