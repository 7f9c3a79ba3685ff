package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"glossa/internal/api"
	"glossa/internal/config"
	"glossa/internal/engine"
	"glossa/internal/events"
	"glossa/internal/jobs"
	"glossa/internal/logging"
	"glossa/internal/notifications"
	"glossa/internal/preflight"
	"glossa/internal/relay"
)

// shutdownFailureMessage is recorded on jobs still in flight when the daemon
// stops.
const shutdownFailureMessage = "daemon stopped before the job finished"

// Daemon coordinates the translation services and enforces single-instance
// execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *jobs.Store
	supervisor  *engine.Supervisor
	coordinator *relay.Coordinator
	hub         *events.Hub
	logStream   *logging.StreamHub

	lockPath string
	lock     *flock.Flock

	apiSrv *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Engine       engine.Status
	Jobs         jobs.Summary
	JobDBPath    string
	LockFilePath string
	OutputDir    string
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, logStream *logging.StreamHub) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	supervisor := engine.NewSupervisor(cfg, logger)
	hub := events.NewHub(256)
	coordinator := relay.NewCoordinator(cfg, logger, supervisor, engine.NewClient(), store, hub, notifications.NewService(cfg))

	lockPath := filepath.Join(cfg.Paths.DataDir, "glossad.lock")
	d := &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       store,
		supervisor:  supervisor,
		coordinator: coordinator,
		hub:         hub,
		logStream:   logStream,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}
	d.apiSrv = newAPIServer(cfg, d, d.logger)
	return d, nil
}

// Start acquires the daemon lock and brings up the HTTP API. The engine
// itself is launched lazily on the first submission.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another glossa daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.apiSrv.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("glossa daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.cfg.Paths.APIBind))
	return nil
}

// Stop terminates the worker, fails any jobs still in flight, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	d.supervisor.Shutdown()
	d.coordinator.Close()
	d.apiSrv.stop()

	if failed, err := d.store.FailActive(context.Background(), shutdownFailureMessage); err != nil {
		d.logger.Warn("in-flight jobs not failed on shutdown", logging.Error(err))
	} else if failed > 0 {
		d.logger.Info("in-flight jobs failed on shutdown", logging.Int64("count", failed))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("glossa daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	summary, err := d.store.Summarize(ctx)
	if err != nil {
		d.logger.Warn("job summary unavailable", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Engine:       d.supervisor.Status(),
		Jobs:         summary,
		JobDBPath:    d.store.Path(),
		LockFilePath: d.lockPath,
		OutputDir:    d.cfg.Paths.OutputDir,
		Checks:       preflight.RunAll(d.cfg),
	}
}

// Submit posts a translation job through the relay coordinator.
func (d *Daemon) Submit(ctx context.Context, req relay.SubmitRequest) (*jobs.Job, error) {
	if !d.running.Load() {
		return nil, errors.New("daemon is not running")
	}
	return d.coordinator.Submit(ctx, req)
}

// ListJobs returns translation history, newest first.
func (d *Daemon) ListJobs(ctx context.Context, limit int) ([]*jobs.Job, error) {
	return d.store.List(ctx, limit)
}

// GetJob returns a single job by id.
func (d *Daemon) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	return d.store.GetByID(ctx, id)
}

// ClearJobs removes history rows; with all set, in-flight rows too.
func (d *Daemon) ClearJobs(ctx context.Context, all bool) (int64, error) {
	removed, err := d.store.Clear(ctx, all)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// JobEvents fetches a page of a job's event stream.
func (d *Daemon) JobEvents(ctx context.Context, jobID string, since uint64, limit int, wait bool) ([]events.Event, bool, error) {
	return d.hub.Fetch(ctx, jobID, since, limit, wait)
}

// LogStream exposes the in-memory log hub, if logging was configured with
// one.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logStream
}

// APIStatus converts the runtime status to its transport form.
func (d *Daemon) APIStatus(ctx context.Context) api.DaemonStatus {
	status := d.Status(ctx)
	deps := make([]api.DependencyStatus, 0, len(status.Checks))
	for _, check := range status.Checks {
		deps = append(deps, api.DependencyStatus{
			Name:      check.Name,
			Available: check.Passed,
			Detail:    check.Detail,
		})
	}
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		Engine:       api.FromEngineStatus(status.Engine),
		Jobs:         api.FromSummary(status.Jobs),
		JobDBPath:    status.JobDBPath,
		LockFilePath: status.LockFilePath,
		OutputDir:    status.OutputDir,
		Dependencies: deps,
	}
}
