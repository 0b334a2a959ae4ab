package sqlite

import (
	"errors"
	"fmt"
)

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "app.db"
)

// Config holds the sqlite.optimize job configuration.
type Config struct {
	// Path is the database file path. Relative paths resolve against the
	// data directory; empty defaults to {DataDir}/app.db.
	Path string `yaml:"path"`

	// Vacuum rebuilds the database file after optimizing.
	Vacuum bool `yaml:"vacuum"`

	// Checkpoint truncates the WAL file. Defaults to true.
	Checkpoint *bool `yaml:"checkpoint"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`
}

func (c *Config) defaults() {
	if c.Checkpoint == nil {
		t := true
		c.Checkpoint = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

func (c *Config) checkpointEnabled() bool {
	return c.Checkpoint == nil || *c.Checkpoint
}

func (c *Config) validate() error {
	if c.Path == "" {
		return errors.New("sqlite: path is required")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	return nil
}
