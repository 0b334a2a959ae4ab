// Package daemon runs the host under an OS service manager (systemd,
// launchd, Windows SCM) through kardianos/service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kardianos/service"
)

// Sentinel errors for Program operations.
var (
	ErrAlreadyStarted = errors.New("daemon: already started")
	ErrStopTimeout    = errors.New("daemon: timed out waiting for run loop")
)

// RunFunc is the blocking host loop. It must return once ctx is cancelled.
type RunFunc func(ctx context.Context) error

// Program adapts a RunFunc to service.Interface. Start must not block, so
// the loop runs in its own goroutine; Stop cancels it and waits.
type Program struct {
	run         RunFunc
	stopTimeout time.Duration
	logger      *slog.Logger

	// exit ends the process when the run loop returns without Stop
	// having asked for it, so the service manager sees a failure.
	exit func(code int)

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	stopping bool
}

// Compile-time interface check.
var _ service.Interface = (*Program)(nil)

// NewProgram creates a Program. stopTimeout bounds how long Stop waits
// for run to return; zero means 30s.
func NewProgram(run RunFunc, stopTimeout time.Duration, logger *slog.Logger) *Program {
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Program{
		run:         run,
		stopTimeout: stopTimeout,
		logger:      logger.With("component", "daemon"),
		exit:        os.Exit,
	}
}

// Start implements service.Interface.
func (p *Program) Start(_ service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.err = nil
	p.stopping = false

	go func() {
		err := p.run(ctx)
		if err != nil {
			p.logger.Error("daemon: run loop failed", "error", err)
		}
		p.mu.Lock()
		p.err = err
		unexpected := !p.stopping
		p.mu.Unlock()
		close(done)

		if unexpected {
			p.logger.Error("daemon: run loop exited without a stop request")
			p.exit(1)
		}
	}()
	p.logger.Info("daemon: started")
	return nil
}

// Stop implements service.Interface.
func (p *Program) Stop(_ service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	if done != nil {
		p.stopping = true
	}
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-time.After(p.stopTimeout):
		return ErrStopTimeout
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel = nil
	p.done = nil
	p.logger.Info("daemon: stopped")
	return p.err
}

// Done returns a channel closed when the current run loop exits, or nil
// when not started.
func (p *Program) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Config describes the OS service.
type Config struct {
	Name        string
	DisplayName string
	Description string

	// Arguments are passed to the executable when the service manager
	// launches it (e.g. "run", "--config", "/etc/hostjob.yaml").
	Arguments []string
}

// New builds the OS service for prog.
func New(cfg Config, prog *Program) (service.Service, error) {
	svc, err := service.New(prog, &service.Config{
		Name:        cfg.Name,
		DisplayName: cfg.DisplayName,
		Description: cfg.Description,
		Arguments:   cfg.Arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("daemon: creating service %s: %w", cfg.Name, err)
	}
	return svc, nil
}

// Actions lists the control verbs accepted by Control.
func Actions() []string {
	return service.ControlAction[:]
}

// Control runs a service manager action: install, uninstall, start, stop
// or restart.
func Control(svc service.Service, action string) error {
	if err := service.Control(svc, action); err != nil {
		return fmt.Errorf("daemon: %s: %w", action, err)
	}
	return nil
}

// Interactive reports whether the process runs from a terminal rather than
// under a service manager.
func Interactive() bool {
	return service.Interactive()
}
