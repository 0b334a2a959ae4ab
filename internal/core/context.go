// Package core provides the composition root and host runtime for hostjob:
// the job kind registry, the App that wires each job to its shared lock,
// and the start/stop lifecycle around them.
package core

import (
	"fmt"
	"log/slog"

	"github.com/flemzord/hostjob/internal/job"
	"gopkg.in/yaml.v3"
)

// AppContext carries shared resources available to job kinds during
// provisioning.
type AppContext struct {
	// Logger for the current job scope.
	Logger *slog.Logger

	// DataDir is the root directory for persistent job data.
	DataDir string

	parentLogger *slog.Logger
}

// NewAppContext creates a new AppContext with the given base logger and data directory.
func NewAppContext(logger *slog.Logger, dataDir string) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Logger:       logger,
		DataDir:      dataDir,
		parentLogger: logger,
	}
}

// ForJob returns a new AppContext scoped to the given job name,
// with a child logger that includes it.
func (ctx *AppContext) ForJob(name string) *AppContext {
	return &AppContext{
		Logger:       ctx.parentLogger.With("job", name),
		DataDir:      ctx.DataDir,
		parentLogger: ctx.parentLogger,
	}
}

// BuildExecutor instantiates a registered kind for the named job.
// The lifecycle order is:
//
//	New() → Configure() → Provision() → Validate()
//
// A nil node skips Configure.
func (ctx *AppContext) BuildExecutor(name, kind string, node *yaml.Node) (job.Executor, error) {
	info, ok := GetKind(kind)
	if !ok {
		return nil, fmt.Errorf("unknown job kind: %s", kind)
	}

	exec := info.New()

	if c, ok := exec.(Configurable); ok && node != nil {
		if err := c.Configure(node); err != nil {
			return nil, fmt.Errorf("configuring job %s: %w", name, err)
		}
	}

	if p, ok := exec.(Provisioner); ok {
		if err := p.Provision(ctx.ForJob(name)); err != nil {
			return nil, fmt.Errorf("provisioning job %s: %w", name, err)
		}
	}

	if v, ok := exec.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating job %s: %w", name, err)
		}
	}

	return exec, nil
}
