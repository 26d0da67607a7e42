package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "monitorrent"
	appDir    = "monitorrent-go"
)

var ErrNoConfig = errors.New("no config file found")

type Config struct {
	// Database is the path of the sqlite database file
	Database string `yaml:"database" mapstructure:"database"`
	// Interval is the number of minutes between two checks of all topics
	Interval int `yaml:"interval" mapstructure:"interval"`
	// FetchSleep is the number of seconds to wait between two topics
	FetchSleep int `yaml:"fetchSleep" mapstructure:"fetchSleep"`
	// HTTPTimeout is the timeout in seconds of requests to trackers
	HTTPTimeout int      `yaml:"httpTimeout" mapstructure:"httpTimeout"`
	Trackers    Trackers `yaml:"trackers" mapstructure:"trackers"`
}

type Trackers struct {
	PTP PTPConfig `yaml:"ptp" mapstructure:"ptp"`
}

type PTPConfig struct {
	BaseURL string `yaml:"baseUrl" mapstructure:"baseUrl"`
}

// Default returns the configuration used for missing keys.
func Default() Config {
	return Config{
		Database:    "monitorrent.db",
		Interval:    120,
		FetchSleep:  5,
		HTTPTimeout: 30,
		Trackers: Trackers{
			PTP: PTPConfig{BaseURL: "https://passthepopcorn.me"},
		},
	}
}

func (c Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Minute
}

func (c Config) FetchSleepDuration() time.Duration {
	return time.Duration(c.FetchSleep) * time.Second
}

func (c Config) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// Dir returns ~/.config/monitorrent-go.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir), nil
}

// Find returns path when set, otherwise the first existing config.yaml in
// the working directory or Dir.
func Find(path string) (string, error) {
	if path != "" {
		return path, nil
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml", nil
	}

	dir, err := Dir()
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	return "", fmt.Errorf("%w in current directory or %s", ErrNoConfig, dir)
}

// Load reads the config file at path, when not empty, and applies
// MONITORRENT_ environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("database", def.Database)
	v.SetDefault("interval", def.Interval)
	v.SetDefault("fetchSleep", def.FetchSleep)
	v.SetDefault("httpTimeout", def.HTTPTimeout)
	v.SetDefault("trackers.ptp.baseUrl", def.Trackers.PTP.BaseURL)

	if path != "" {
		log.Debug().Str("path", path).Msg("loading config file")

		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %d", cfg.Interval)
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("httpTimeout must be positive, got %d", cfg.HTTPTimeout)
	}

	// a relative database lives next to the config file
	if path != "" && !filepath.IsAbs(cfg.Database) {
		cfg.Database = filepath.Join(filepath.Dir(path), cfg.Database)
	}

	return &cfg, nil
}

const header = `# monitorrent configuration
#
# database:    sqlite database file, relative paths are resolved next to this file
# interval:    minutes between two checks of all watched topics
# fetchSleep:  seconds to wait between two topics
# httpTimeout: seconds before a tracker request is abandoned
#
# Download clients and tracker credentials are stored in the database, use
# the clients and trackers commands to configure them.
#
# Every key can be overridden with a MONITORRENT_ environment variable,
# e.g. MONITORRENT_INTERVAL=30 or MONITORRENT_TRACKERS_PTP_BASEURL.

`

// Write creates a config file at path holding cfg. It refuses to overwrite
// an existing file.
func Write(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
