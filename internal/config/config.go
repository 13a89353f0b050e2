// Package config loads runtime settings from the environment and an
// optional .env file, plus an optional JSON file of classifier tuning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // LANES_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
)

// Default source images.
const (
	DefaultCameraURL = "https://images.drivebc.ca/bchighwaycam/pub/cameras/18.jpg"
	DefaultDelayURL  = "https://www.th.gov.bc.ca/ATIS/lgcws/images/lions_gate/atis_delay.gif"
	DefaultQueueURL  = "https://www.th.gov.bc.ca/ATIS/lgcws/images/lions_gate/queue_map.gif"
)

type Config struct {
	LogLevel string

	// Sources
	CameraURL string
	DelayURL  string
	QueueURL  string

	// Refresh cycle
	RefreshInterval time.Duration
	PassTimeout     time.Duration

	// Schedule
	Timezone       string
	FallbackPolicy string

	// HTTP status API
	HTTPPort int

	// NATS publishing, disabled when NatsURL is empty
	NatsURL            string
	NatsSubject        string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration

	// TuningFile is an optional JSON file overriding classifier settings.
	TuningFile string

	OCRLanguage string
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		LogLevel: getEnv("LANES_LOG_LEVEL", "info"),

		CameraURL: getEnv("LANES_CAMERA_URL", DefaultCameraURL),
		DelayURL:  getEnv("LANES_DELAY_URL", DefaultDelayURL),
		QueueURL:  getEnv("LANES_QUEUE_URL", DefaultQueueURL),

		RefreshInterval: getEnvDuration("LANES_REFRESH_INTERVAL", 60*time.Second),
		PassTimeout:     getEnvDuration("LANES_PASS_TIMEOUT", 2500*time.Millisecond),

		Timezone:       getEnv("LANES_TIMEZONE", "America/Vancouver"),
		FallbackPolicy: getEnv("LANES_FALLBACK_POLICY", string(lanes.DefaultSchedulePolicy)),

		HTTPPort: getEnvInt("LANES_HTTP_PORT", 8080),

		NatsURL:            getEnv("LANES_NATS_URL", ""),
		NatsSubject:        getEnv("LANES_NATS_SUBJECT", "lanes.config"),
		NatsConnectTimeout: getEnvDuration("LANES_NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("LANES_NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("LANES_NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("LANES_NATS_DRAIN_TIMEOUT", 5*time.Second),

		TuningFile:  getEnv("LANES_TUNING_FILE", ""),
		OCRLanguage: getEnv("LANES_OCR_LANGUAGE", "eng"),
	}
}

// Validate reports settings that would make the service misbehave rather
// than silently falling back to defaults.
func (c *Config) Validate() error {
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", c.RefreshInterval)
	}
	if c.PassTimeout <= 0 {
		return fmt.Errorf("pass timeout must be positive, got %s", c.PassTimeout)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http port out of range: %d", c.HTTPPort)
	}
	if _, err := lanes.ParseSchedulePolicy(c.FallbackPolicy); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// EngineOptions builds lane engine options from the environment settings
// and, when TuningFile is set, the tuning overrides it contains.
func (c *Config) EngineOptions() (lanes.Options, error) {
	opts := lanes.DefaultOptions()

	policy, err := lanes.ParseSchedulePolicy(c.FallbackPolicy)
	if err != nil {
		return opts, err
	}
	opts.Policy = policy

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return opts, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	opts.Location = loc

	if c.TuningFile == "" {
		return opts, nil
	}
	tuning, err := LoadTuningConfig(c.TuningFile)
	if err != nil {
		return opts, err
	}
	if err := tuning.Apply(&opts); err != nil {
		return opts, err
	}
	log.Info().Str("file", c.TuningFile).Msg("Applied classifier tuning")
	return opts, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
