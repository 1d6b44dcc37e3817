package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName        = "leasecli"
	ConfigFileName = "config.json"

	DefaultBaseURL = "http://localhost:5001"
)

// Config holds the backend location and client timing settings.
type Config struct {
	BaseURL            string `json:"base_url"`
	TimeoutSeconds     int    `json:"timeout_seconds"`
	DefaultArea        string `json:"default_area"`
	PollTimeoutMinutes int    `json:"poll_timeout_minutes"`
	GeocodeIntervalMS  int    `json:"geocode_interval_ms"`
	Proxy              string `json:"proxy,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:            DefaultBaseURL,
		TimeoutSeconds:     30,
		DefaultArea:        "all",
		PollTimeoutMinutes: 0,
		GeocodeIntervalMS:  500,
	}
}

func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollTimeout is zero when polling is unbounded.
func (c Config) PollTimeout() time.Duration {
	if c.PollTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(c.PollTimeoutMinutes) * time.Minute
}

func (c Config) GeocodeInterval() time.Duration {
	if c.GeocodeIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.GeocodeIntervalMS) * time.Millisecond
}

func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return applyEnv(DefaultConfig()), err
	}
	return LoadFile(path)
}

// LoadFile reads a JSON5 config file over the defaults. A missing file is not
// an error. LEASECLI_* environment variables win over the file.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return applyEnv(cfg), err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return applyEnv(cfg), nil
	}

	if err := json5.Unmarshal(data, &cfg); err != nil {
		return applyEnv(DefaultConfig()), err
	}

	return applyEnv(cfg), nil
}

// Init writes a default config.json if it doesn't already exist.
func Init() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return InitDir(dir)
}

func InitDir(dir string) ([]string, error) {
	var created []string
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeConfig(configPath, DefaultConfig()); err != nil {
			return created, err
		}
		created = append(created, configPath)
	}

	return created, nil
}

func writeConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func applyEnv(cfg Config) Config {
	cfg.BaseURL = envString("LEASECLI_BASE_URL", cfg.BaseURL)
	cfg.TimeoutSeconds = envInt("LEASECLI_TIMEOUT_SECONDS", cfg.TimeoutSeconds)
	cfg.DefaultArea = envString("LEASECLI_DEFAULT_AREA", cfg.DefaultArea)
	cfg.PollTimeoutMinutes = envInt("LEASECLI_POLL_TIMEOUT_MINUTES", cfg.PollTimeoutMinutes)
	cfg.Proxy = envString("LEASECLI_PROXY", cfg.Proxy)
	return cfg
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
