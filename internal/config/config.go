package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/WebPressive/webpressive.github.io/internal/overlay"
	"github.com/WebPressive/webpressive.github.io/internal/protocol"
	"github.com/WebPressive/webpressive.github.io/internal/session"
	"github.com/WebPressive/webpressive.github.io/internal/viewport"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	TLS      TLSConfig
	Database DatabaseConfig
	Deck     DeckConfig
	Sync     SyncConfig
	Viewport viewport.Options
}

// ServerConfig holds the listen address
type ServerConfig struct {
	Host string
	Port string
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Enabled    bool
	CertFile   string
	KeyFile    string
	MinVersion string
}

// DatabaseConfig holds the preferences database location
type DatabaseConfig struct {
	Path string
}

// DeckConfig selects the deck loaded at startup
type DeckConfig struct {
	Dir string // empty loads the demo deck
}

// SyncConfig tunes the presenter/receiver channel
type SyncConfig struct {
	Topic            string
	LivenessInterval time.Duration
	FrameInterval    time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	vp := viewport.DefaultOptions()

	return &Config{
		Server: ServerConfig{
			Host: getEnv("HOST", "0.0.0.0"),
			Port: getEnv("PORT", "8080"),
		},
		TLS: TLSConfig{
			Enabled:    getEnvBool("TLS_ENABLED", false),
			CertFile:   getEnv("TLS_CERT_FILE", ""),
			KeyFile:    getEnv("TLS_KEY_FILE", ""),
			MinVersion: getEnv("TLS_MIN_VERSION", "1.2"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/webpressive.db"),
		},
		Deck: DeckConfig{
			Dir: getEnv("DECK_DIR", ""),
		},
		Sync: SyncConfig{
			Topic:            getEnv("SYNC_TOPIC", protocol.DefaultTopic),
			LivenessInterval: getEnvDuration("LIVENESS_INTERVAL", session.DefaultLivenessInterval),
			FrameInterval:    getEnvDuration("FRAME_INTERVAL", overlay.DefaultFrameInterval),
		},
		Viewport: viewport.Options{
			MinZoom:       getEnvFloat("ZOOM_MIN", vp.MinZoom),
			MaxZoom:       getEnvFloat("ZOOM_MAX", vp.MaxZoom),
			RegionMinZoom: getEnvFloat("REGION_ZOOM_MIN", vp.RegionMinZoom),
			MinRegion:     getEnvFloat("MIN_REGION", vp.MinRegion),
			PanStep:       getEnvFloat("PAN_STEP", vp.PanStep),
			WheelStep:     getEnvFloat("WHEEL_STEP", vp.WheelStep),
		},
	}
}

// SessionOptions returns presenter options for this configuration.
func (c *Config) SessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.Viewport = c.Viewport
	opts.LivenessInterval = c.Sync.LivenessInterval
	opts.FrameInterval = c.Sync.FrameInterval
	return opts
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Invalid %s=%q, using default %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f <= 0 {
		log.Printf("Invalid %s=%q, using default %g", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
