package config

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Location providers.
const (
	ProviderBrowser = "browser"
	ProviderGoogle  = "google"
)

type Config struct {
	Server struct {
		Port        int           `yaml:"port"`
		SessionIdle time.Duration `yaml:"session_idle"`
		MaxUploadMB int64         `yaml:"max_upload_mb"`
	} `yaml:"server"`
	Report struct {
		SubmitDelay time.Duration `yaml:"submit_delay"`
	} `yaml:"report"`
	Emergency struct {
		DefaultNumber string        `yaml:"default_number"`
		BusyWindow    time.Duration `yaml:"busy_window"`
		SOSCountdown  int           `yaml:"sos_countdown"`
		SOSTick       time.Duration `yaml:"sos_tick"`
	} `yaml:"emergency"`
	Location struct {
		Provider     string        `yaml:"provider"`
		HighAccuracy *bool         `yaml:"high_accuracy"`
		Timeout      time.Duration `yaml:"timeout"`
		MaximumAge   time.Duration `yaml:"maximum_age"`
		GoogleAPIKey string        `yaml:"google_api_key"`
	} `yaml:"location"`
	RabbitMQ struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"rabbitmq"`
	ContextBroker struct {
		URL string `yaml:"url"`
	} `yaml:"context_broker"`
	Session struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"session"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadFromFile loads config from a YAML file, applies defaults and env overrides, and validates it.
// A missing file is not an error: the defaults are used.
func LoadFromFile(path string) (*Config, error) {
	var cfg Config

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		if err := Parse(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Parse decodes YAML strictly: unknown keys are rejected.
func Parse(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Default returns a validated config made of defaults only.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// HighAccuracy reports the effective high-accuracy flag.
func (c *Config) HighAccuracy() bool {
	return c.Location.HighAccuracy == nil || *c.Location.HighAccuracy
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionIdle == 0 {
		cfg.Server.SessionIdle = 30 * time.Minute
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}

	// Report
	if cfg.Report.SubmitDelay == 0 {
		cfg.Report.SubmitDelay = 2 * time.Second
	}

	// Emergency
	if cfg.Emergency.DefaultNumber == "" {
		cfg.Emergency.DefaultNumber = "911"
	}
	if cfg.Emergency.BusyWindow == 0 {
		cfg.Emergency.BusyWindow = 3 * time.Second
	}
	if cfg.Emergency.SOSCountdown == 0 {
		cfg.Emergency.SOSCountdown = 5
	}
	if cfg.Emergency.SOSTick == 0 {
		cfg.Emergency.SOSTick = time.Second
	}

	// Location
	if cfg.Location.Provider == "" {
		cfg.Location.Provider = ProviderBrowser
	}
	if cfg.Location.Timeout == 0 {
		cfg.Location.Timeout = 10 * time.Second
	}
	if cfg.Location.MaximumAge == 0 {
		cfg.Location.MaximumAge = 60 * time.Second
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Session.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.Session.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// applyEnv lets the environment override file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CIVIC_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("CIVIC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.Location.GoogleAPIKey = v
	}
	if v := os.Getenv("RABBITMQ_HOST"); v != "" {
		cfg.RabbitMQ.Host = v
	}
	if v := os.Getenv("RABBITMQ_USER"); v != "" {
		cfg.RabbitMQ.User = v
	}
	if v := os.Getenv("RABBITMQ_PASSWORD"); v != "" {
		cfg.RabbitMQ.Password = v
	}
	if v := os.Getenv("CONTEXT_BROKER_URL"); v != "" {
		cfg.ContextBroker.URL = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Session.SecretKey = v
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be in 1..65535")
	}
	if c.Server.SessionIdle < time.Second {
		problems = append(problems, "server.session_idle must be at least 1s")
	}
	if c.Server.MaxUploadMB < 0 {
		problems = append(problems, "server.max_upload_mb cannot be negative")
	}
	if c.Report.SubmitDelay < 0 {
		problems = append(problems, "report.submit_delay cannot be negative")
	}

	if strings.TrimSpace(c.Emergency.DefaultNumber) == "" {
		problems = append(problems, "emergency.default_number is required")
	}
	if c.Emergency.BusyWindow < 0 {
		problems = append(problems, "emergency.busy_window cannot be negative")
	}
	if c.Emergency.SOSCountdown < 1 {
		problems = append(problems, "emergency.sos_countdown must be >= 1")
	}
	if c.Emergency.SOSTick <= 0 {
		problems = append(problems, "emergency.sos_tick must be positive")
	}

	switch c.Location.Provider {
	case ProviderBrowser:
	case ProviderGoogle:
		if strings.TrimSpace(c.Location.GoogleAPIKey) == "" {
			problems = append(problems, "location.google_api_key is required for the google provider")
		}
	default:
		problems = append(problems, "location.provider must be one of: browser, google")
	}
	if c.Location.Timeout <= 0 {
		problems = append(problems, "location.timeout must be positive")
	}
	if c.Location.MaximumAge < 0 {
		problems = append(problems, "location.maximum_age cannot be negative")
	}

	if c.RabbitMQ.Enabled {
		if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
			problems = append(problems, "rabbitmq.port must be in 1..65535")
		}
		if c.RabbitMQ.User == "" {
			problems = append(problems, "rabbitmq.user is required")
		}
		if c.RabbitMQ.Password == "" {
			problems = append(problems, "rabbitmq.password is required")
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
