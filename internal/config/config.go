package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "parley"

// Config holds the process configuration surface. Every field can be set
// through a PARLEY_* environment variable; cmd/server additionally exposes
// flags for the common ones.
type Config struct {
	Addr        string `envconfig:"ADDR" default:"localhost:8765" validate:"required"`
	DataDir     string `envconfig:"DATA_DIR" default:"." validate:"required"`
	UsersFile   string `envconfig:"USERS_FILE" default:"users.json" validate:"required"`
	RoomsFile   string `envconfig:"ROOMS_FILE" default:"rooms.json" validate:"required"`
	HistoryFile string `envconfig:"HISTORY_FILE" default:"history.json" validate:"required"`
	LogFile     string `envconfig:"LOG_FILE" default:"server.log" validate:"required"`

	IdleTimeout      time.Duration `envconfig:"IDLE_TIMEOUT" default:"5m" validate:"gt=0"`
	PresenceInterval time.Duration `envconfig:"PRESENCE_INTERVAL" default:"5s" validate:"gt=0"`
	HistoryLimit     int           `envconfig:"HISTORY_LIMIT" default:"200" validate:"gt=0"`

	DefaultRoom string `envconfig:"DEFAULT_ROOM" default:"general" validate:"required"`
	// CreateRoomOnPublish makes publishing to an unknown room create it with
	// the default policy instead of failing. Matches the historical behavior
	// of the service when enabled.
	CreateRoomOnPublish bool `envconfig:"CREATE_ROOM_ON_PUBLISH" default:"true"`
}

// New loads the configuration from the environment and validates it.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration after any flag overrides were applied.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// UsersPath returns the absolute location of the accounts snapshot section.
func (c *Config) UsersPath() string { return filepath.Join(c.DataDir, c.UsersFile) }

// RoomsPath returns the absolute location of the rooms snapshot section.
func (c *Config) RoomsPath() string { return filepath.Join(c.DataDir, c.RoomsFile) }

// HistoryPath returns the absolute location of the history snapshot section.
func (c *Config) HistoryPath() string { return filepath.Join(c.DataDir, c.HistoryFile) }

// LogPath returns the absolute location of the operational log.
func (c *Config) LogPath() string { return filepath.Join(c.DataDir, c.LogFile) }
