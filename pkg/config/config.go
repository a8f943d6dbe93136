package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultFileName = "config.yaml"

// Config captures the user-adjustable knobs for session recording.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Capture CaptureConfig `yaml:"capture"`
	Keys    KeysConfig    `yaml:"keys"`
	Logging LoggingConfig `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// PathsConfig controls filesystem locations used by the CLI.
type PathsConfig struct {
	SessionsDir string `yaml:"sessions_dir"`
	CatalogPath string `yaml:"catalog_path"`
	FeaturesDir string `yaml:"features_dir"`
}

// CaptureConfig describes the screen region and cadence for recording.
type CaptureConfig struct {
	Region    RegionConfig `yaml:"region"`
	FrameRate float64      `yaml:"frame_rate"`
	Format    string       `yaml:"format"`
}

// RegionConfig is the captured screen rectangle in pixels.
type RegionConfig struct {
	Top    int `yaml:"top" json:"top"`
	Left   int `yaml:"left" json:"left"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// KeysConfig lists the gameplay keys worth logging and the reserved bindings.
type KeysConfig struct {
	Gameplay      []string `yaml:"gameplay"`
	SessionToggle string   `yaml:"session_toggle"`
	FightStart    string   `yaml:"fight_start"`
	FightEnd      string   `yaml:"fight_end"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			SessionsDir: "sessions",
			CatalogPath: "sessions/catalog.db",
			FeaturesDir: "features",
		},
		Capture: CaptureConfig{
			Region: RegionConfig{
				Top:    264,
				Left:   0,
				Width:  720,
				Height: 403,
			},
			FrameRate: 10,
			Format:    "mp4",
		},
		Keys: KeysConfig{
			Gameplay:      []string{"d", "f", "space", "up", "down", "left", "right"},
			SessionToggle: "1",
			FightStart:    "8",
			FightEnd:      "9",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./config.yaml but tolerates a
// missing file. Environment variables override whatever was loaded.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	data, err := os.ReadFile(candidate)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %q: %w", candidate, err)
		}
		cfg.Source = candidate
	case errors.Is(err, os.ErrNotExist):
		if explicit {
			return cfg, fmt.Errorf("config file %q not found", candidate)
		}
	default:
		return cfg, fmt.Errorf("read config file %q: %w", candidate, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if dir := os.Getenv("SESSIONTAPE_SESSIONS_DIR"); dir != "" {
		cfg.Paths.SessionsDir = dir
	}
	if path := os.Getenv("SESSIONTAPE_CATALOG_PATH"); path != "" {
		cfg.Paths.CatalogPath = path
	}
	if rate := os.Getenv("SESSIONTAPE_FRAME_RATE"); rate != "" {
		parsed, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return fmt.Errorf("invalid SESSIONTAPE_FRAME_RATE: %w", err)
		}
		cfg.Capture.FrameRate = parsed
	}
	if level := os.Getenv("SESSIONTAPE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	return nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Paths.SessionsDir) == "" {
		return errors.New("paths.sessions_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		return errors.New("paths.catalog_path must not be empty")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	if c.Capture.Region.Width <= 0 {
		return errors.New("capture.region.width must be positive")
	}
	if c.Capture.Region.Height <= 0 {
		return errors.New("capture.region.height must be positive")
	}
	if c.Capture.Region.Top < 0 || c.Capture.Region.Left < 0 {
		return errors.New("capture.region origin must not be negative")
	}
	if c.Capture.FrameRate <= 0 {
		return errors.New("capture.frame_rate must be positive")
	}
	if strings.TrimSpace(c.Capture.Format) == "" {
		return errors.New("capture.format must not be empty")
	}
	if len(c.Keys.Gameplay) == 0 {
		return errors.New("keys.gameplay must list at least one key")
	}

	return nil
}

func (c *Config) normalize() {
	defaults := Default()

	c.Paths.SessionsDir = strings.TrimSpace(c.Paths.SessionsDir)
	c.Paths.CatalogPath = strings.TrimSpace(c.Paths.CatalogPath)
	c.Paths.FeaturesDir = strings.TrimSpace(c.Paths.FeaturesDir)

	if c.Paths.SessionsDir == "" {
		c.Paths.SessionsDir = defaults.Paths.SessionsDir
	}
	if c.Paths.CatalogPath == "" {
		c.Paths.CatalogPath = defaults.Paths.CatalogPath
	}
	if c.Paths.FeaturesDir == "" {
		c.Paths.FeaturesDir = defaults.Paths.FeaturesDir
	}

	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}

	if c.Capture.FrameRate <= 0 {
		c.Capture.FrameRate = defaults.Capture.FrameRate
	}
	c.Capture.Format = strings.ToLower(strings.TrimSpace(c.Capture.Format))
	if c.Capture.Format == "" {
		c.Capture.Format = defaults.Capture.Format
	}

	if len(c.Keys.Gameplay) == 0 {
		c.Keys.Gameplay = defaults.Keys.Gameplay
	}
	if strings.TrimSpace(c.Keys.SessionToggle) == "" {
		c.Keys.SessionToggle = defaults.Keys.SessionToggle
	}
	if strings.TrimSpace(c.Keys.FightStart) == "" {
		c.Keys.FightStart = defaults.Keys.FightStart
	}
	if strings.TrimSpace(c.Keys.FightEnd) == "" {
		c.Keys.FightEnd = defaults.Keys.FightEnd
	}
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
