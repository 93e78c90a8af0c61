package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets the variables Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ENV_NAME", "PORT", "DATA_PATH", "LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// inDir runs the test from dir and restores the working directory afterwards.
func inDir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, "server:\n  port: \"\"\n")
	inDir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DataPath != DefaultDataPath {
		t.Errorf("DataPath = %q, want %q", cfg.DataPath, DefaultDataPath)
	}
	if cfg.DashboardTitle != "Global Weather Dashboard" {
		t.Errorf("DashboardTitle = %q", cfg.DashboardTitle)
	}
	if cfg.RateLimitRPS != 50 || cfg.RateLimitBurst != 100 {
		t.Errorf("rate limit = %d/%d, want 50/100", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("timeouts = %v/%v, want 5s/30s", cfg.RequestTimeout, cfg.ShutdownTimeout)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q, want INFO", cfg.LogLevel)
	}
	if cfg.HealthWindow != time.Minute || cfg.OverloadThresholdPct != 20 || cfg.DegradedErrorPct != 50 {
		t.Errorf("health = %v/%d/%d, want 1m/20/50", cfg.HealthWindow, cfg.OverloadThresholdPct, cfg.DegradedErrorPct)
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, fullEnvYAML)
	inDir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.DataPath != "testdata/weather.csv" {
		t.Errorf("DataPath = %q", cfg.DataPath)
	}
	if cfg.DashboardTitle != "Weather" {
		t.Errorf("DashboardTitle = %q, want Weather", cfg.DashboardTitle)
	}
	if cfg.RateLimitRPS != 0 {
		t.Errorf("RateLimitRPS = %d, want 0 (disabled)", cfg.RateLimitRPS)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Errorf("RequestTimeout = %v, want 2s", cfg.RequestTimeout)
	}
	if cfg.ShutdownInFlightCheckInterval != 50*time.Millisecond {
		t.Errorf("ShutdownInFlightCheckInterval = %v, want 50ms", cfg.ShutdownInFlightCheckInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.OverloadThresholdPct != 0 || cfg.DegradedErrorPct != 25 || cfg.HealthWindow != 30*time.Second {
		t.Errorf("health = %v/%d/%d, want 30s/0/25", cfg.HealthWindow, cfg.OverloadThresholdPct, cfg.DegradedErrorPct)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, fullEnvYAML)
	inDir(t, dir)
	t.Setenv("PORT", "7000")
	t.Setenv("DATA_PATH", "/srv/weather.csv")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "7000" || cfg.DataPath != "/srv/weather.csv" {
		t.Errorf("ServerPort/DataPath = %q/%q, want env values", cfg.ServerPort, cfg.DataPath)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, fullEnvYAML)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DATA_PATH=from-dotenv.csv\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	inDir(t, dir)
	t.Cleanup(func() { os.Unsetenv("DATA_PATH") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataPath != "from-dotenv.csv" {
		t.Errorf("DataPath = %q, want value from .env", cfg.DataPath)
	}
}

func TestLoad_EnvFileNotFound(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV_NAME", "nonexistent")
	inDir(t, t.TempDir())

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing env file, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Load() error = %v, want message about config file not found", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, "server: [unterminated\n")
	inDir(t, dir)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "parse config file") {
		t.Errorf("Load() error = %v, want parse error", err)
	}
}

func TestLoad_NegativeRateLimitRejected(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, "reliability:\n  rate_limit_rps: -1\n")
	inDir(t, dir)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "rate_limit_rps") {
		t.Errorf("Load() error = %v, want rate_limit_rps validation error", err)
	}
}

func TestLoad_PercentOutOfRangeRejected(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, "reliability:\n  degraded_error_pct: 150\n")
	inDir(t, dir)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "degraded_error_pct") {
		t.Errorf("Load() error = %v, want degraded_error_pct validation error", err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Minute},
		{"invalid", time.Minute},
		{"-5s", time.Minute},
		{"0s", time.Minute},
		{" 3s ", 3 * time.Second},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in, time.Minute); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate_CapsRequestTimeout(t *testing.T) {
	cfg := &Config{RequestTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, ShutdownInFlightTimeout: time.Second, ShutdownInFlightCheckInterval: 5 * time.Second}
	if err := validate(cfg); err != nil {
		t.Fatalf("validate() error = %v", err)
	}
	if cfg.RequestTimeout != 9*time.Second {
		t.Errorf("RequestTimeout = %v, want 9s", cfg.RequestTimeout)
	}
	if cfg.ShutdownInFlightCheckInterval != time.Second {
		t.Errorf("ShutdownInFlightCheckInterval = %v, want capped to 1s", cfg.ShutdownInFlightCheckInterval)
	}
}

func TestValidate_WriteTimeoutTooSmall(t *testing.T) {
	cfg := &Config{RequestTimeout: time.Second, WriteTimeout: time.Second}
	if err := validate(cfg); err == nil {
		t.Error("validate() = nil, want error for 1s write timeout")
	}
}

const fullEnvYAML = `
server:
  port: "9090"
  read_timeout: "5s"
  write_timeout: "15s"
log:
  level: debug
data:
  path: testdata/weather.csv
dashboard:
  title: Weather
request:
  timeout: "2s"
reliability:
  rate_limit_rps: 0
  rate_limit_burst: 10
  health_window: "30s"
  overload_threshold_pct: 0
  degraded_error_pct: 25
shutdown:
  timeout: "10s"
  in_flight_timeout: "2s"
  in_flight_check_interval: "50ms"
`

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}
