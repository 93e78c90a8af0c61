package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultDataPath is the dataset location used when neither config nor env sets one.
const DefaultDataPath = "data/raw/GlobalWeatherRepository.csv"

// Config holds service configuration loaded from YAML, .env, and env.
type Config struct {
	ServerPort   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	LogLevel string

	DataPath string

	DashboardTitle    string
	DashboardSubtitle string

	RequestTimeout time.Duration
	RateLimitRPS   int // 0 disables the limiter
	RateLimitBurst int

	// HealthWindow is the span of recent traffic /health evaluates.
	HealthWindow         time.Duration
	OverloadThresholdPct int // 0 disables the overloaded status
	DegradedErrorPct     int // 0 disables the degraded status

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port         string `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Data struct {
		Path string `yaml:"path"`
	} `yaml:"data"`

	Dashboard struct {
		Title    string `yaml:"title"`
		Subtitle string `yaml:"subtitle"`
	} `yaml:"dashboard"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS         *int   `yaml:"rate_limit_rps"`
		RateLimitBurst       int    `yaml:"rate_limit_burst"`
		HealthWindow         string `yaml:"health_window"`
		OverloadThresholdPct *int   `yaml:"overload_threshold_pct"`
		DegradedErrorPct     *int   `yaml:"degraded_error_pct"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev). A .env file in the
// working directory, when present, is loaded into the environment first; real environment
// variables win over it. PORT, DATA_PATH, and LOG_LEVEL override the file. Call from project root.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8080")
	cfg.ReadTimeout = parseDuration(fc.Server.ReadTimeout, 10*time.Second)
	cfg.WriteTimeout = parseDuration(fc.Server.WriteTimeout, 10*time.Second)

	cfg.LogLevel = firstNonEmpty(os.Getenv("LOG_LEVEL"), fc.Log.Level, "INFO")

	cfg.DataPath = firstNonEmpty(os.Getenv("DATA_PATH"), fc.Data.Path, DefaultDataPath)

	cfg.DashboardTitle = firstNonEmpty(fc.Dashboard.Title, "Global Weather Dashboard")
	cfg.DashboardSubtitle = firstNonEmpty(fc.Dashboard.Subtitle,
		"Interactive weather data visualization with filtering by country, city, and date range.")

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)

	cfg.RateLimitRPS = intOrDefault(fc.Reliability.RateLimitRPS, 50)
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	cfg.HealthWindow = parseDuration(fc.Reliability.HealthWindow, time.Minute)
	cfg.OverloadThresholdPct = intOrDefault(fc.Reliability.OverloadThresholdPct, 20)
	cfg.DegradedErrorPct = intOrDefault(fc.Reliability.DegradedErrorPct, 50)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// intOrDefault distinguishes an explicit 0 in the file from an absent key.
func intOrDefault(v *int, defaultVal int) int {
	if v == nil {
		return defaultVal
	}
	return *v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// validate performs post-load checks. RequestTimeout is capped below WriteTimeout so a
// timed-out request can still write its error response.
func validate(cfg *Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("reliability.rate_limit_rps must be >= 0, got %d", cfg.RateLimitRPS)
	}
	for name, pct := range map[string]int{
		"reliability.overload_threshold_pct": cfg.OverloadThresholdPct,
		"reliability.degraded_error_pct":     cfg.DegradedErrorPct,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%s must be within 0..100, got %d", name, pct)
		}
	}
	if cfg.RequestTimeout >= cfg.WriteTimeout {
		cfg.RequestTimeout = cfg.WriteTimeout - time.Second
		if cfg.RequestTimeout <= 0 {
			return fmt.Errorf("server.write_timeout must exceed 1s, got %s", cfg.WriteTimeout)
		}
	}
	if cfg.ShutdownInFlightCheckInterval > cfg.ShutdownInFlightTimeout {
		cfg.ShutdownInFlightCheckInterval = cfg.ShutdownInFlightTimeout
	}
	return nil
}
