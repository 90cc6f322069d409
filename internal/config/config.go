package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds server settings read from the environment.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	NATSURL          string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	AnalyticsEnabled bool   `env:"ANALYTICS_ENABLED" envDefault:"true"`

	MatchmakingTimeout    time.Duration `env:"MATCHMAKING_TIMEOUT" envDefault:"10s"`
	DisconnectGracePeriod time.Duration `env:"DISCONNECT_GRACE_PERIOD" envDefault:"30s"`
	BotMoveDelay          time.Duration `env:"BOT_MOVE_DELAY" envDefault:"500ms"`
	CleanupDelay          time.Duration `env:"CLEANUP_DELAY" envDefault:"5s"`

	// Optional YAML file with settings that make poor environment
	// variables, like the bot name roster.
	ConfigFile string `env:"CONFIG_FILE"`
}

// Load parses environment configuration.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// FileConfig holds optional settings read from a YAML file.
type FileConfig struct {
	Bots struct {
		Names []string `yaml:"names"`
	} `yaml:"bots"`
}

// LoadFile reads the optional YAML config. An empty path yields zero
// values so callers fall back to built-in defaults.
func LoadFile(path string) (*FileConfig, error) {
	if path == "" {
		return &FileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &fc, nil
}
