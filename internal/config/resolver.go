package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the default configuration file name.
const FileName = "hostjob.yaml"

// ResolvePath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/hostjob/hostjob.yaml → ~/.config/hostjob/hostjob.yaml → ./hostjob.yaml
func ResolvePath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "hostjob", FileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "hostjob", FileName))
	}

	candidates = append(candidates, FileName)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/hostjob if set, otherwise ~/.local/share/hostjob.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "hostjob")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "hostjob")
}
