package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/hostjob/internal/job"
	"github.com/flemzord/hostjob/internal/lock"
	"gopkg.in/yaml.v3"
)

const defaultShutdownTimeout = 30 * time.Second

// Sentinel errors for App operations.
var (
	ErrDuplicateName = errors.New("core: duplicate service name")
	ErrUnknownJob    = errors.New("core: unknown job")
)

// App hosts a set of services, most of them guarded jobs, and drives their
// start/stop lifecycle.
type App struct {
	ctx             *AppContext
	logger          *slog.Logger
	shutdownTimeout time.Duration
	jobOpts         []job.Option

	// lifeMu serializes Start and Stop; mu guards registration and lookups.
	lifeMu   sync.Mutex
	mu       sync.RWMutex
	services []serviceInstance
	jobs     map[string]*job.Job
	locks    map[string]lock.Locker
}

type serviceInstance struct {
	name    string
	service Service
	started bool
}

// Option configures an App.
type Option func(*App)

// WithShutdownTimeout bounds the time Stop gives services to shut down.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// WithJobOptions applies opts to every job added to the App, before the
// per-job options passed to AddJob.
func WithJobOptions(opts ...job.Option) Option {
	return func(a *App) {
		a.jobOpts = append(a.jobOpts, opts...)
	}
}

// NewApp creates a new App with the given context.
func NewApp(ctx *AppContext, opts ...Option) *App {
	if ctx == nil {
		ctx = NewAppContext(nil, "")
	}
	a := &App{
		ctx:             ctx,
		logger:          ctx.Logger.With("component", "core"),
		shutdownTimeout: defaultShutdownTimeout,
		jobs:            make(map[string]*job.Job),
		locks:           make(map[string]lock.Locker),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddService registers a non-job service. Services start in registration
// order and stop in reverse.
func (a *App) AddService(name string, svc Service) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addServiceLocked(name, svc)
}

func (a *App) addServiceLocked(name string, svc Service) error {
	for _, si := range a.services {
		if si.name == name {
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}
	a.services = append(a.services, serviceInstance{name: name, service: svc})
	return nil
}

// AddJob wires exec to a lock and registers the resulting job as a hosted
// service. newLock is called once; the lock it returns is shared by every
// trigger of this job for the life of the App. A nil newLock yields a
// lock.Flag.
func (a *App) AddJob(name string, exec job.Executor, newLock func() lock.Locker, opts ...job.Option) (*job.Job, error) {
	if name == "" {
		return nil, errors.New("core: job name must not be empty")
	}
	if newLock == nil {
		newLock = func() lock.Locker { return lock.NewFlag() }
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.jobs[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	lk := newLock()
	allOpts := append([]job.Option{job.WithLogger(a.ctx.Logger)}, a.jobOpts...)
	allOpts = append(allOpts, opts...)

	j, err := job.New(name, exec, lk, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("core: job %q: %w", name, err)
	}
	if err := a.addServiceLocked(name, j); err != nil {
		return nil, err
	}
	a.jobs[name] = j
	a.locks[name] = lk
	a.logger.Info("job registered", "job", name)
	return j, nil
}

// LoadJob builds an executor of the given kind from its YAML config and
// registers it with an in-memory lock. wrap, when non-nil, decorates the
// executor before it is guarded (tracing, for instance).
func (a *App) LoadJob(name, kind string, node *yaml.Node, wrap func(string, job.Executor) job.Executor) (*job.Job, error) {
	exec, err := a.ctx.BuildExecutor(name, kind, node)
	if err != nil {
		return nil, err
	}
	if wrap != nil {
		exec = wrap(name, exec)
	}
	return a.AddJob(name, exec, nil)
}

// Lock returns the lock shared by the named job.
func (a *App) Lock(name string) (lock.Locker, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	lk, ok := a.locks[name]
	return lk, ok
}

// Job returns the named job.
func (a *App) Job(name string) (*job.Job, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	j, ok := a.jobs[name]
	return j, ok
}

// JobStatus is a point-in-time view of a job.
type JobStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// Jobs returns the status of every job in registration order.
func (a *App) Jobs() []JobStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]JobStatus, 0, len(a.jobs))
	for _, si := range a.services {
		if j, ok := a.jobs[si.name]; ok {
			result = append(result, JobStatus{Name: j.Name(), Running: j.Running()})
		}
	}
	return result
}

// Start starts all services in order. If any Start fails, already started
// services are stopped in reverse order and the error is returned.
// Services must all be registered before Start is called.
func (a *App) Start(ctx context.Context) error {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()

	for i := range a.services {
		si := &a.services[i]
		a.logger.Info("starting service", "service", si.name)
		if err := si.service.Start(ctx); err != nil {
			a.logger.Error("service start failed", "service", si.name, "error", err)
			a.stopServices(i - 1)
			return fmt.Errorf("starting service %s: %w", si.name, err)
		}
		si.started = true
	}
	a.logger.Info("all services started", "count", len(a.services))
	return nil
}

// Stop stops all started services in reverse order with a timeout.
func (a *App) Stop() {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()
	a.stopServices(len(a.services) - 1)
}

func (a *App) stopServices(fromIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	for i := fromIndex; i >= 0; i-- {
		si := &a.services[i]
		if !si.started {
			continue
		}
		a.logger.Info("stopping service", "service", si.name)
		if err := si.service.Stop(ctx); err != nil {
			a.logger.Error("service stop error", "service", si.name, "error", err)
		}
		si.started = false
	}
}

// Trigger invokes the named job's Start again. A run already in progress
// makes it a silent no-op. Failures are logged here and returned.
func (a *App) Trigger(ctx context.Context, name string) error {
	j, ok := a.Job(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	if err := j.Start(ctx); err != nil {
		a.logger.Error("job failed", "job", name, "error", err)
		return err
	}
	return nil
}

// Run starts all services and blocks until ctx is cancelled, then stops them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown requested", "reason", context.Cause(ctx))

	a.Stop()
	a.logger.Info("shutdown complete")
	return nil
}
