// Package config reads the kiosk's startup configuration from the
// environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abrezinsky/kioskfeedback/internal/errors"
)

// Environment variable names
const (
	EnvDeviceID          = "KIOSK_DEVICE_ID"
	EnvAPIBaseURL        = "API_BASE_URL"
	EnvPollInterval      = "POLL_INTERVAL_MS"
	EnvInactivityTimeout = "INACTIVITY_TIMEOUT_MS"
	EnvHardTimeout       = "HARD_TIMEOUT_MS"
	EnvThankYouDelay     = "THANK_YOU_MS"
	EnvNATSURL           = "NATS_URL"
	EnvStaffPassword     = "KIOSK_STAFF_PASSWORD"
)

// Defaults
const (
	DefaultDeviceID          = "KIOSK_MAIN"
	DefaultPollInterval      = 2000 * time.Millisecond
	DefaultInactivityTimeout = 90 * time.Second
	DefaultHardTimeout       = 180 * time.Second
	DefaultThankYouDelay     = 5 * time.Second
)

// Config is the kiosk configuration
type Config struct {
	DeviceID          string
	APIBaseURL        string
	PollInterval      time.Duration
	InactivityTimeout time.Duration
	HardTimeout       time.Duration
	ThankYouDelay     time.Duration
	NATSURL           string
	StaffPassword     string
}

// Load reads envFile (if it exists) into the process environment and then
// builds a Config from it. Variables already set in the environment win
// over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrValidation, fmt.Sprintf("failed to read %s", envFile))
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using lookup to resolve variables
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		DeviceID:          get(EnvDeviceID, DefaultDeviceID),
		APIBaseURL:        strings.TrimRight(get(EnvAPIBaseURL, ""), "/"),
		PollInterval:      millis(get(EnvPollInterval, ""), DefaultPollInterval),
		InactivityTimeout: millis(get(EnvInactivityTimeout, ""), DefaultInactivityTimeout),
		HardTimeout:       millis(get(EnvHardTimeout, ""), DefaultHardTimeout),
		ThankYouDelay:     millis(get(EnvThankYouDelay, ""), DefaultThankYouDelay),
		NATSURL:           get(EnvNATSURL, ""),
		StaffPassword:     get(EnvStaffPassword, ""),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.Validationf("%s is required", EnvAPIBaseURL)
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return errors.Validationf("%s must be an http(s) URL, got %q", EnvAPIBaseURL, c.APIBaseURL)
	}
	return nil
}

// millis parses a positive millisecond count, falling back to def
func millis(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}
