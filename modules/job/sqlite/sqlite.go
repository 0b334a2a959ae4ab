// Package sqlite implements the sqlite.optimize job kind: routine
// maintenance of a SQLite database (PRAGMA optimize, WAL checkpoint and an
// optional VACUUM). It uses modernc.org/sqlite (pure Go, no CGO).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/flemzord/hostjob/internal/core"
	"github.com/flemzord/hostjob/internal/job"
	"gopkg.in/yaml.v3"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Kind is the identifier used in configuration.
const Kind = "sqlite.optimize"

func init() {
	core.RegisterKind(core.KindInfo{
		Kind: Kind,
		New:  func() job.Executor { return &Optimizer{} },
	})
}

// Compile-time interface guards.
var (
	_ job.Executor      = (*Optimizer)(nil)
	_ core.Configurable = (*Optimizer)(nil)
	_ core.Provisioner  = (*Optimizer)(nil)
	_ core.Validator    = (*Optimizer)(nil)
)

// Optimizer runs maintenance statements against one database. It opens
// the database per run so nothing is held between runs.
type Optimizer struct {
	config Config
	logger *slog.Logger
}

// Configure implements core.Configurable.
func (o *Optimizer) Configure(node *yaml.Node) error {
	if err := node.Decode(&o.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	o.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (o *Optimizer) Provision(ctx *core.AppContext) error {
	o.config.defaults()
	o.logger = ctx.Logger

	switch {
	case o.config.Path == "":
		o.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	case !filepath.IsAbs(o.config.Path) && ctx.DataDir != "":
		o.config.Path = filepath.Join(ctx.DataDir, o.config.Path)
	}
	return nil
}

// Validate implements core.Validator.
func (o *Optimizer) Validate() error {
	return o.config.validate()
}

// Execute implements job.Executor.
func (o *Optimizer) Execute(ctx context.Context) error {
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(o.config.Path); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", o.config.Path)
	if err != nil {
		return fmt.Errorf("sqlite: open %s: %w", o.config.Path, err)
	}
	defer func() { _ = db.Close() }()

	db.SetMaxOpenConns(1)

	begin := time.Now()
	for _, stmt := range o.statements() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sqlite: cancelled before %q: %w", stmt, err)
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: %s: %w", stmt, err)
		}
	}

	logger.Info("sqlite: maintenance complete",
		"path", o.config.Path,
		"vacuum", o.config.Vacuum,
		"elapsed", time.Since(begin),
	)
	return nil
}

func (o *Optimizer) statements() []string {
	stmts := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", o.config.BusyTimeout),
		"PRAGMA optimize",
	}
	if o.config.checkpointEnabled() {
		stmts = append(stmts, "PRAGMA wal_checkpoint(TRUNCATE)")
	}
	if o.config.Vacuum {
		stmts = append(stmts, "VACUUM")
	}
	return stmts
}
