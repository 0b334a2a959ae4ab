package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Service is the lifecycle contract the App drives: Start when the host
// comes up, Stop when it shuts down. *job.Job satisfies it.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Configurable is implemented by job kinds that accept YAML configuration.
// Called after instantiation and before Provision().
// The node contains the raw YAML from the job's "config" section.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by job kinds that need setup after
// instantiation: defaults, derived paths, loggers.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by job kinds that can verify their configuration
// is complete and correct. Called after Provision().
// Validate should be read-only.
type Validator interface {
	Validate() error
}
