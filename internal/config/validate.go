package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/hostjob/internal/core"
)

// Validate checks the structural validity of a Config: the version, the
// logger settings, and that every enabled job has a unique name and a
// registered kind. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if _, ok := parseLevel(cfg.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("config: log.level: unknown level %q", cfg.Log.Level))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format: must be text or json, got %q", cfg.Log.Format))
	}

	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: shutdown_timeout must be non-negative, got %s", cfg.ShutdownTimeout))
	}

	errs = append(errs, validateJobs(cfg.Jobs)...)

	return errors.Join(errs...)
}

func validateJobs(jobs []JobConfig) []error {
	var errs []error

	if len(Enabled(jobs)) == 0 {
		errs = append(errs, errors.New("config: at least one enabled job must be configured"))
	}

	seen := make(map[string]int, len(jobs))
	for i, j := range jobs {
		if j.Name == "" {
			errs = append(errs, fmt.Errorf("config: jobs[%d]: name is required", i))
		} else if prev, dup := seen[j.Name]; dup {
			errs = append(errs, fmt.Errorf("config: jobs[%d]: duplicate name %q (first at jobs[%d])", i, j.Name, prev))
		} else {
			seen[j.Name] = i
		}

		if j.Kind == "" {
			errs = append(errs, fmt.Errorf("config: jobs[%d]: kind is required", i))
		} else if _, ok := core.GetKind(j.Kind); !ok {
			errs = append(errs, fmt.Errorf("config: jobs[%d]: unknown kind %q", i, j.Kind))
		}
	}

	return errs
}

// Enabled returns the jobs that are not disabled, in file order.
func Enabled(jobs []JobConfig) []JobConfig {
	result := make([]JobConfig, 0, len(jobs))
	for _, j := range jobs {
		if !j.Disabled {
			result = append(result, j)
		}
	}
	return result
}
